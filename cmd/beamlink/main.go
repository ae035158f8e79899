package main

import (
	"context"
	"log"

	"github.com/okatenko/beamlink/internal/app/cli"
	"github.com/okatenko/beamlink/internal/app/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
