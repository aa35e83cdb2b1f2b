package gate

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/andrebq/dirgate/realm"
	"github.com/go-ldap/ldap/v3"
	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
)

const (
	bobDN = "uid=bob,ou=people,dc=example,dc=org"
	opsDN = "cn=ops,ou=groups,dc=example,dc=org"
)

type (
	stubConn struct {
		password string
		groups   []string
	}
)

func (s *stubConn) Bind(username, password string) error {
	if username == bobDN && password == s.password {
		return nil
	}
	return ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("invalid credentials"))
}

func (s *stubConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	if req.BaseDN != bobDN {
		return &ldap.SearchResult{}, nil
	}
	return &ldap.SearchResult{Entries: []*ldap.Entry{
		{
			DN: bobDN,
			Attributes: []*ldap.EntryAttribute{
				ldap.NewEntryAttribute("memberOf", s.groups),
			},
		},
	}}, nil
}

func (s *stubConn) Close() error {
	return nil
}

func testHandler(t *testing.T) http.Handler {
	t.Helper()
	cfg := realm.DefaultConfig()
	cfg.UserTemplate = "uid=%s,ou=people,dc=example,dc=org"
	cfg.GroupTemplate = "cn=%s,ou=groups,dc=example,dc=org"
	cfg.GroupBase = "ou=groups,dc=example,dc=org"
	conn := &stubConn{password: "secret", groups: []string{opsDN}}
	r, err := realm.New(cfg, func(context.Context) (realm.Conn, error) {
		return conn, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return AsHandler(r, Options{RealmName: "Test", Timeout: time.Second})
}

func TestMissingCredentialsChallenge(t *testing.T) {
	apitest.Handler(testHandler(t)).
		Get("/auth").
		Expect(t).
		Status(http.StatusUnauthorized).
		Header("WWW-Authenticate", `Basic realm="Test"`).
		End()
}

func TestValidCredentials(t *testing.T) {
	apitest.Handler(testHandler(t)).
		Get("/auth").
		BasicAuth("bob", "secret").
		Expect(t).
		Status(http.StatusOK).
		End()
}

func TestWrongPassword(t *testing.T) {
	apitest.Handler(testHandler(t)).
		Get("/auth").
		BasicAuth("bob", "nope").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
}

func TestGroupScopedCheck(t *testing.T) {
	handler := testHandler(t)
	apitest.Handler(handler).
		Get("/auth").
		Query("group", "ops").
		BasicAuth("bob", "secret").
		Expect(t).
		Status(http.StatusOK).
		End()
	apitest.Handler(handler).
		Get("/auth").
		Query("group", "dba").
		BasicAuth("bob", "secret").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
}

func TestGroupFromHeader(t *testing.T) {
	apitest.Handler(testHandler(t)).
		Get("/auth").
		Header("X-Auth-Group", "ops").
		BasicAuth("bob", "secret").
		Expect(t).
		Status(http.StatusOK).
		End()
}

func TestStatusReportsCacheSizes(t *testing.T) {
	handler := testHandler(t)
	apitest.Handler(handler).
		Get("/auth").
		BasicAuth("bob", "secret").
		Expect(t).
		Status(http.StatusOK).
		End()
	apitest.Handler(handler).
		Get("/status").
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.credentials", float64(1))).
		Assert(jsonpath.Equal("$.groups", float64(0))).
		Assert(jsonpath.Present("$.uptime_seconds")).
		End()
}
