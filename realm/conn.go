package realm

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/go-ldap/ldap/v3"
)

type (
	// Conn is the subset of *ldap.Conn the realm needs. Tests substitute a
	// fake directory behind this interface.
	Conn interface {
		Bind(username, password string) error
		Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
		Close() error
	}

	// Dialer produces a fresh connection to the directory.
	Dialer func(ctx context.Context) (Conn, error)

	// connManager owns the single shared directory connection. The mutex is
	// the serialization point for everything touching the wire: a bind
	// mutates connection-wide state, so two operations can never share the
	// handle concurrently.
	connManager struct {
		mu    sync.Mutex
		dial  Dialer
		conn  Conn
		bound bool
	}
)

// DialURL returns the production Dialer, connecting to the given LDAP URL
// with the given network timeout applied both to the dial and to every
// request on the resulting connection.
func DialURL(url string, timeout time.Duration) Dialer {
	return func(ctx context.Context) (Conn, error) {
		dialer := &net.Dialer{Timeout: timeout}
		if deadline, ok := ctx.Deadline(); ok {
			dialer.Deadline = deadline
		}
		conn, err := ldap.DialURL(url, ldap.DialWithDialer(dialer))
		if err != nil {
			return nil, err
		}
		if timeout > 0 {
			conn.SetTimeout(timeout)
		}
		return conn, nil
	}
}

func newConnManager(dial Dialer) *connManager {
	return &connManager{dial: dial}
}

// bind validates dn/password against the directory. ok=false with a nil
// error means the directory explicitly rejected the credentials; a non-nil
// error means the attempt could not be completed at all.
//
// Transport-level failures are retried exactly once on a fresh connection.
func (m *connManager) bind(ctx context.Context, dn, password string) (ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		conn, err := m.ensure(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		err = conn.Bind(dn, password)
		switch {
		case err == nil:
			m.bound = true
			return true, nil
		case ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials):
			// the connection survives a failed bind on the wire, but its
			// state is no longer trusted
			m.drop()
			return false, nil
		case transportFailure(err):
			m.drop()
			lastErr = err
			continue
		default:
			m.drop()
			return false, err
		}
	}
	return false, DirectoryUnavailable{Cause: lastErr}
}

// search runs req over the shared connection, binding as dn first if the
// connection is not bound yet. The same one-retry-on-fresh-connection rule
// as bind applies to transport failures.
//
// The connection may be left bound as a different identity from a previous
// caller, that is fine: searches only require some bound state, and binds
// overwrite it wholesale.
func (m *connManager) search(ctx context.Context, dn, password string, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		conn, err := m.ensure(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if !m.bound {
			err := conn.Bind(dn, password)
			if transportFailure(err) {
				m.drop()
				lastErr = err
				continue
			}
			if err != nil {
				m.drop()
				return nil, err
			}
			m.bound = true
		}
		res, err := conn.Search(req)
		if err == nil {
			return res, nil
		}
		if transportFailure(err) {
			m.drop()
			lastErr = err
			continue
		}
		m.drop()
		return nil, err
	}
	return nil, DirectoryUnavailable{Cause: lastErr}
}

// ensure returns the shared connection, dialing a new one if the previous
// was dropped.
func (m *connManager) ensure(ctx context.Context) (Conn, error) {
	if m.conn != nil {
		return m.conn, nil
	}
	conn, err := m.dial(ctx)
	if err != nil {
		return nil, err
	}
	m.conn = conn
	m.bound = false
	return conn, nil
}

// drop clears the shared connection, forcing the next operation to dial
// fresh. Callers must hold m.mu.
func (m *connManager) drop() {
	if m.conn != nil {
		m.conn.Close()
	}
	m.conn = nil
	m.bound = false
}

// Close releases the shared connection, if any.
func (m *connManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drop()
}

func transportFailure(err error) bool {
	if err == nil {
		return false
	}
	if ldap.IsErrorWithCode(err, ldap.ErrorNetwork) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr)
}
