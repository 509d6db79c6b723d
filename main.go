package main

import (
	"os"

	"github.com/infodir/opa-permission-api/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
