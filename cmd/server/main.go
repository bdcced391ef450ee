package main

import (
	"context"
	"flag"
	"log"

	"pill-rush/server/internal/app"
)

func main() {
	configPath := flag.String("config", "", "path to the config file (defaults to $PILLRUSH_CONFIG or config.json)")
	flag.Parse()

	if err := app.Run(context.Background(), app.Config{ConfigPath: *configPath}); err != nil {
		log.Fatalf("%v", err)
	}
}
