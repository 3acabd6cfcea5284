package main

import (
	"os"

	"github.com/tenantadmin/tenantadmin/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
