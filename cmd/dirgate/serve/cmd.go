package serve

import (
	"time"

	"github.com/andrebq/dirgate/gate"
	"github.com/andrebq/dirgate/internal/cmdflags"
	"github.com/andrebq/dirgate/internal/httpserver"
	"github.com/andrebq/dirgate/realm"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	bindAddr := "localhost:8888"
	directoryURL := "ldap://localhost:389"
	realmName := "Restricted"
	requestTimeout := 10 * time.Second
	sweepEvery := time.Minute
	cfg := realm.DefaultConfig()
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the auth backend consulted by the reverse proxy",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "bind",
				Usage:       "Address to bind for incoming auth subrequests",
				Destination: &bindAddr,
				Value:       bindAddr,
			},
			&cli.StringFlag{
				Name:        "realm-name",
				Usage:       "Realm advertised on the Basic auth challenge",
				Destination: &realmName,
				Value:       realmName,
			},
			&cli.DurationFlag{
				Name:        "sweep-every",
				Usage:       "Interval between cache reclamation sweeps",
				Destination: &sweepEvery,
				Value:       sweepEvery,
			},
			cmdflags.DirectoryURL(&directoryURL),
			cmdflags.RequestTimeout(&requestTimeout),
		}, cmdflags.Realm(&cfg)...),
		Action: func(ctx *cli.Context) error {
			r, err := realm.New(cfg, realm.DialURL(directoryURL, requestTimeout))
			if err != nil {
				return err
			}
			defer r.Close()
			go r.Sweep(ctx.Context, sweepEvery)
			handler := gate.AsHandler(r, gate.Options{
				RealmName: realmName,
				Timeout:   requestTimeout,
			})
			return httpserver.Serve(ctx.Context, bindAddr, handler)
		},
	}
}
