package main

import (
	"context"
	"log"
	"os"

	"github.com/equipsense/equipsense/internal/buildinfo"
	"github.com/equipsense/equipsense/internal/client/cli"
	"github.com/equipsense/equipsense/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
