package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrUnsupportedDBDriver error if config db.driver is not one of sqlite, mysql or postgres.
	ErrUnsupportedDBDriver = errors.New("toml config db.driver must be sqlite, mysql or postgres")

	// ErrUnsupportedNotifyProvider error if config notify.provider is unknown.
	ErrUnsupportedNotifyProvider = errors.New("toml config notify.provider must be log or noop")
)
