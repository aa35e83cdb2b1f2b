package realm

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/go-ldap/ldap/v3"
)

type (
	// fakeDir is an in-memory stand-in for the directory: user entries with
	// passwords and attributes, plus a gid -> group DN table for the
	// primary-group indirection. Failure injection is count-based so tests
	// can script "the next N binds die on the wire".
	fakeDir struct {
		mu        sync.Mutex
		groupBase string
		passwords map[string]string
		attrs     map[string]map[string][]string
		// entries returned by a user lookup, defaults to 1 for known users
		userEntryCount map[string]int
		groupsByGID    map[string][]string

		dials    int
		binds    int
		searches int

		failDials int
		failBinds int
	}

	fakeConn struct {
		dir *fakeDir
	}
)

func newFakeDir() *fakeDir {
	return &fakeDir{
		groupBase:      "ou=groups,dc=example,dc=org",
		passwords:      map[string]string{},
		attrs:          map[string]map[string][]string{},
		userEntryCount: map[string]int{},
		groupsByGID:    map[string][]string{},
	}
}

func (f *fakeDir) dialer() Dialer {
	return func(ctx context.Context) (Conn, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.dials++
		if f.failDials > 0 {
			f.failDials--
			return nil, ldap.NewError(ldap.ErrorNetwork, errors.New("connection refused"))
		}
		return &fakeConn{dir: f}, nil
	}
}

func (c *fakeConn) Bind(username, password string) error {
	c.dir.mu.Lock()
	defer c.dir.mu.Unlock()
	c.dir.binds++
	if c.dir.failBinds > 0 {
		c.dir.failBinds--
		return ldap.NewError(ldap.ErrorNetwork, errors.New("connection reset by peer"))
	}
	want, ok := c.dir.passwords[username]
	if !ok || want != password {
		return ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("invalid credentials"))
	}
	return nil
}

func (c *fakeConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	c.dir.mu.Lock()
	defer c.dir.mu.Unlock()
	c.dir.searches++
	if req.BaseDN == c.dir.groupBase {
		return c.groupLookup(req), nil
	}
	return c.userLookup(req), nil
}

func (c *fakeConn) userLookup(req *ldap.SearchRequest) *ldap.SearchResult {
	dn := req.BaseDN
	count, ok := c.dir.userEntryCount[dn]
	if !ok {
		if _, known := c.dir.passwords[dn]; known {
			count = 1
		}
	}
	res := &ldap.SearchResult{}
	for i := 0; i < count; i++ {
		entry := &ldap.Entry{DN: dn}
		for name, values := range c.dir.attrs[dn] {
			entry.Attributes = append(entry.Attributes, ldap.NewEntryAttribute(name, values))
		}
		res.Entries = append(res.Entries, entry)
	}
	return res
}

func (c *fakeConn) groupLookup(req *ldap.SearchRequest) *ldap.SearchResult {
	// filter looks like (&(objectClass=posixGroup)(gidNumber=1000))
	idx := strings.LastIndex(req.Filter, "=")
	gid := strings.TrimRight(req.Filter[idx+1:], ")")
	res := &ldap.SearchResult{}
	for _, dn := range c.dir.groupsByGID[gid] {
		res.Entries = append(res.Entries, &ldap.Entry{DN: dn})
	}
	return res
}

func (c *fakeConn) Close() error {
	return nil
}
