package main

import (
	"os"

	log "github.com/sirupsen/logrus"
)

var (
	version = "dev"
)

func main() {
	app := newApp(version)
	if err := app.Run(os.Args); err != nil {
		log.Fatalf("%+v", err)
	}
}
