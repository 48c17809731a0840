package main

import (
	"context"
	"log"

	"github.com/equipsense/equipsense/internal/mailer"
	"github.com/equipsense/equipsense/internal/mailer/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := mailer.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
