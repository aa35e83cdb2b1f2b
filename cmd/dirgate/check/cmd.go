package check

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/andrebq/dirgate/internal/cmdflags"
	"github.com/andrebq/dirgate/realm"
	"github.com/urfave/cli/v2"
)

// Cmd performs a single allow/deny decision from the command line, useful
// to validate directory settings before pointing the proxy at a serve
// instance. The password is read from stdin.
func Cmd() *cli.Command {
	var username string
	var group string
	directoryURL := "ldap://localhost:389"
	requestTimeout := 10 * time.Second
	cfg := realm.DefaultConfig()
	return &cli.Command{
		Name:  "check",
		Usage: "Run one allow/deny decision and exit (password is read from stdin)",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "username",
				Aliases:     []string{"u", "user"},
				Usage:       "Name of the user to check",
				Destination: &username,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "group",
				Aliases:     []string{"g"},
				Usage:       "Also require membership in this group",
				Destination: &group,
			},
			cmdflags.DirectoryURL(&directoryURL),
			cmdflags.RequestTimeout(&requestTimeout),
		}, cmdflags.Realm(&cfg)...),
		Action: func(ctx *cli.Context) error {
			sc := bufio.NewScanner(os.Stdin)
			if !sc.Scan() {
				return sc.Err()
			}
			password := strings.TrimSpace(sc.Text())
			if len(password) == 0 {
				return errors.New("missing password from stdin")
			}
			r, err := realm.New(cfg, realm.DialURL(directoryURL, requestTimeout))
			if err != nil {
				return err
			}
			defer r.Close()
			decisionCtx, cancel := context.WithTimeout(ctx.Context, requestTimeout)
			defer cancel()
			if !r.Allow(decisionCtx, realm.CheckRequest{User: username, Pass: password, Group: group}) {
				return cli.Exit("deny", 1)
			}
			fmt.Println("allow")
			return nil
		},
	}
}
