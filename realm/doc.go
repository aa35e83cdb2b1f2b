// Package realm answers the only two questions dirgate ever gets asked:
// "is this user/password pair valid?" and "is this valid user a member of
// group G?".
//
// Answers come from an LDAP directory. Binds are expensive (one round-trip
// per request, sometimes more), so the realm keeps two small caches with
// independent TTL windows: one for validated credentials and one for
// resolved group sets. The credential cache never stores the password
// itself, only a keyed one-way fingerprint of (identity, password); the key
// is random per process, so nothing in memory is useful across restarts.
//
// The directory connection is a single shared handle. LDAP binds mutate
// connection state, so every operation that needs the wire serializes on the
// connection manager, which also owns the failure story: any transport-level
// error drops the connection and the operation is retried exactly once on a
// fresh one. A second transport failure is treated as "directory down" and
// logged loudly; it is not a credential problem and operators should see the
// difference.
//
// Everything here reduces to a boolean on purpose. The HTTP layer in front
// of this package translates deny into a 401 challenge and nothing else;
// callers never learn why a request was denied.
package realm
