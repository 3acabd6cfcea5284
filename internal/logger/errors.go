package logger

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrAppNameIsEmpty is returned by Init without Log.AppName.
	ErrAppNameIsEmpty = errors.New("config Log.AppName can not be empty")

	// ErrServiceNameIsEmpty is returned by Init without Log.ServiceName.
	ErrServiceNameIsEmpty = errors.New("config Log.ServiceName can not be empty")
)

// ErrorHandler reports events zerolog failed to write. The logger itself is the broken
// part, so this goes straight to stderr.
func ErrorHandler(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "tenantadmin: dropped log event: %v\n", err)
}
