package realm

import (
	"fmt"
	"strings"
	"time"
)

type (
	// Config carries everything the realm needs to know about the directory
	// schema. Attribute names and object classes default to a POSIX-flavored
	// layout, see DefaultConfig.
	Config struct {
		// UserTemplate expands a login name into the DN of the user entry,
		// e.g. "uid=%s,ou=people,dc=example,dc=org". Must contain exactly
		// one %s verb.
		UserTemplate string

		// GroupTemplate expands a group name into the DN of the group entry
		// it refers to, e.g. "cn=%s,ou=groups,dc=example,dc=org".
		GroupTemplate string

		// GroupBase is the base DN under which the primary-group indirection
		// is resolved.
		GroupBase string

		// PersonClass restricts the user lookup to entries of this object
		// class.
		PersonClass string

		// GroupClass restricts the primary-group lookup to entries of this
		// object class.
		GroupClass string

		// MemberAttr is the user attribute listing group DNs the user is a
		// member of.
		MemberAttr string

		// PrimaryGroupAttr is the user attribute holding the numeric id of
		// the user's primary group, resolved against GroupIDAttr under
		// GroupBase. Empty disables the indirection.
		PrimaryGroupAttr string

		// GroupIDAttr is the group attribute matched against the value of
		// PrimaryGroupAttr.
		GroupIDAttr string

		// CredentialTTL bounds how long a successful bind is trusted without
		// asking the directory again.
		CredentialTTL time.Duration

		// GroupTTL bounds how long a resolved group set is trusted. Usually
		// longer than CredentialTTL, group churn is slower than password
		// churn.
		GroupTTL time.Duration
	}

	// CheckRequest is a single decision to make. An empty Group asks only
	// "is this a valid user", a non-empty Group additionally requires
	// membership in that group.
	CheckRequest struct {
		User  string
		Pass  string
		Group string
	}
)

// DefaultConfig returns a Config with the schema knobs set for a POSIX-style
// directory. Templates and GroupBase have no sane defaults and must be
// filled in by the caller.
func DefaultConfig() Config {
	return Config{
		PersonClass:      "person",
		GroupClass:       "posixGroup",
		MemberAttr:       "memberOf",
		PrimaryGroupAttr: "gidNumber",
		GroupIDAttr:      "gidNumber",
		CredentialTTL:    time.Minute,
		GroupTTL:         5 * time.Minute,
	}
}

func (c Config) validate() error {
	if strings.Count(c.UserTemplate, "%s") != 1 {
		return fmt.Errorf("realm: user template %q must contain exactly one %%s verb", c.UserTemplate)
	}
	if c.GroupTemplate != "" && strings.Count(c.GroupTemplate, "%s") != 1 {
		return fmt.Errorf("realm: group template %q must contain exactly one %%s verb", c.GroupTemplate)
	}
	if c.CredentialTTL <= 0 || c.GroupTTL <= 0 {
		return fmt.Errorf("realm: cache TTLs must be positive, got credential %v group %v", c.CredentialTTL, c.GroupTTL)
	}
	return nil
}
