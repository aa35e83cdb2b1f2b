package realm

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andrebq/dirgate/internal/logutil"
	"github.com/go-ldap/ldap/v3"
	"golang.org/x/crypto/blake2b"
)

type (
	// Realm is one instance of the decision engine: a directory connection
	// manager plus the two TTL caches. Construct one per process and share
	// it across requests; all methods are safe for concurrent use.
	Realm struct {
		cfg   Config
		key   [32]byte
		conn  *connManager
		cache *cache
	}
)

// New validates cfg and assembles a Realm around the given dialer. The
// fingerprint key is drawn fresh from crypto/rand, so cached credentials are
// only meaningful to this process.
func New(cfg Config, dial Dialer) (*Realm, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if dial == nil {
		return nil, errors.New("realm: nil dialer")
	}
	r := &Realm{
		cfg:   cfg,
		conn:  newConnManager(dial),
		cache: newCache(time.Now),
	}
	if _, err := rand.Read(r.key[:]); err != nil {
		return nil, fmt.Errorf("realm: unable to draw fingerprint key, cause %w", err)
	}
	return r, nil
}

// UserDN derives the directory identity for a login name. Returns the empty
// string for anything that must never reach the directory.
func (r *Realm) UserDN(user string) string {
	if user == "" {
		return ""
	}
	return fmt.Sprintf(r.cfg.UserTemplate, ldap.EscapeDN(user))
}

// GroupDN derives the directory identity for a group name, using the group
// template. Returns the empty string when no template is configured or the
// name is empty.
func (r *Realm) GroupDN(group string) string {
	if group == "" || r.cfg.GroupTemplate == "" {
		return ""
	}
	return fmt.Sprintf(r.cfg.GroupTemplate, ldap.EscapeDN(group))
}

// Authenticate checks user/password against the credential cache first and
// the directory on a miss. Only successful binds are cached; a failed bind
// costs the next request another round-trip on purpose, so one mistyped
// password can never lock a user out for the TTL window.
func (r *Realm) Authenticate(ctx context.Context, user, password string) bool {
	log := logutil.GetOrDefault(ctx)
	dn := r.UserDN(user)
	if dn == "" {
		log.Debug().Str("user", user).Msg("Refusing empty identity")
		return false
	}
	fp := r.fingerprintOf(dn, password)
	if r.cache.credential(dn, fp) {
		log.Debug().Str("dn", dn).Msg("Credential cache hit")
		return true
	}
	ok, err := r.conn.bind(ctx, dn, password)
	if err != nil {
		var down DirectoryUnavailable
		if errors.As(err, &down) {
			log.Error().Err(err).Msg("Directory unreachable, denying request")
		} else {
			log.Warn().Err(err).Str("dn", dn).Msg("Bind failed, denying request")
		}
		return false
	}
	if !ok {
		log.Debug().Str("dn", dn).Msg("Credentials rejected by directory")
		return false
	}
	r.cache.storeCredential(dn, fp, r.cfg.CredentialTTL)
	return true
}

// Allow makes the full decision for one request: authenticate always, then
// for group-scoped checks require membership in the requested group. A
// failed authentication short-circuits without touching group state.
func (r *Realm) Allow(ctx context.Context, req CheckRequest) bool {
	if !r.Authenticate(ctx, req.User, req.Pass) {
		return false
	}
	if req.Group == "" {
		return true
	}
	want := r.GroupDN(req.Group)
	if want == "" {
		log := logutil.GetOrDefault(ctx)
		log.Debug().Str("group", req.Group).Msg("Refusing unresolvable group name")
		return false
	}
	for _, dn := range r.GroupsOf(ctx, req.User, req.Pass) {
		// DNs compare case-insensitively
		if strings.EqualFold(dn, want) {
			return true
		}
	}
	return false
}

// Sweep periodically reclaims expired cache entries until ctx is cancelled.
// Run it on its own goroutine; the caches stay correct without it.
func (r *Realm) Sweep(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.cache.sweep()
		}
	}
}

// CacheSizes reports the current number of credential and group entries,
// for operator-facing status.
func (r *Realm) CacheSizes() (creds, groups int) {
	return r.cache.sizes()
}

// Close releases the shared directory connection.
func (r *Realm) Close() {
	r.conn.Close()
}

func (r *Realm) fingerprintOf(dn, password string) fingerprint {
	h, _ := blake2b.New256(r.key[:])
	h.Write([]byte(dn))
	h.Write([]byte{0})
	h.Write([]byte(password))
	var fp fingerprint
	copy(fp[:], h.Sum(nil))
	return fp
}
