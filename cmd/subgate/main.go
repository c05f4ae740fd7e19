package main

import (
	"log"

	"github.com/m3rciful/subgate/core/cmd"
	"github.com/m3rciful/subgate/gate/app"
)

func main() {
	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.Bootstrap,
	})
	if err != nil {
		log.Fatal(err)
	}
}
