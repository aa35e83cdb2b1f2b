package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/andrebq/dirgate/cmd/dirgate/check"
	"github.com/andrebq/dirgate/cmd/dirgate/serve"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "dirgate",
		Usage: "LDAP-backed allow/deny oracle for reverse proxies",
		Commands: []*cli.Command{
			serve.Cmd(),
			check.Cmd(),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Application failed")
	}
}
