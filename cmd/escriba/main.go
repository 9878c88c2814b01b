package main

import (
	"os"

	"tintero.dev/escriba/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
