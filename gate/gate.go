// Package gate is the thin HTTP translation layer in front of the realm:
// it decodes Basic credentials plus an optional group name and maps the
// realm's boolean onto 200/401. No failure detail ever crosses this
// boundary.
package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/andrebq/dirgate/internal/logutil"
	"github.com/andrebq/dirgate/internal/reqid"
	"github.com/andrebq/dirgate/realm"
	"github.com/julienschmidt/httprouter"
)

type (
	Options struct {
		// RealmName is advertised in the WWW-Authenticate challenge.
		RealmName string

		// Timeout bounds one whole decision, directory calls included.
		// Zero disables the bound.
		Timeout time.Duration
	}

	gateway struct {
		realm   *realm.Realm
		opts    Options
		started time.Time
	}

	statusPayload struct {
		CredentialEntries int     `json:"credentials"`
		GroupEntries      int     `json:"groups"`
		UptimeSeconds     float64 `json:"uptime_seconds"`
	}
)

// AsHandler wires the auth-check and status endpoints. GET /auth is the
// endpoint nginx points auth_request at; the required group, if any, comes
// from the group query parameter or the X-Auth-Group header.
func AsHandler(r *realm.Realm, opts Options) http.Handler {
	if opts.RealmName == "" {
		opts.RealmName = "Restricted"
	}
	g := &gateway{realm: r, opts: opts, started: time.Now()}
	router := httprouter.New()
	router.GET("/auth", g.check)
	router.HEAD("/auth", g.check)
	router.GET("/status", g.status)
	return router
}

func (g *gateway) check(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	ctx := req.Context()
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}
	log := logutil.GetOrDefault(ctx).With().Str("req", reqid.Next(req)).Logger()
	ctx = logutil.WithLogger(ctx, log)
	user, pass, ok := req.BasicAuth()
	if !ok {
		g.challenge(w)
		return
	}
	group := req.URL.Query().Get("group")
	if group == "" {
		group = req.Header.Get("X-Auth-Group")
	}
	allowed := g.realm.Allow(ctx, realm.CheckRequest{User: user, Pass: pass, Group: group})
	log.Debug().Str("user", user).Str("group", group).Bool("allow", allowed).Msg("Decision")
	if !allowed {
		g.challenge(w)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (g *gateway) challenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", g.opts.RealmName))
	http.Error(w, "Invalid credentials", http.StatusUnauthorized)
}

func (g *gateway) status(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	creds, groups := g.realm.CacheSizes()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statusPayload{
		CredentialEntries: creds,
		GroupEntries:      groups,
		UptimeSeconds:     time.Since(g.started).Seconds(),
	})
}
