package realm

import (
	"context"
	"fmt"
	"strings"

	"github.com/andrebq/dirgate/internal/logutil"
	"github.com/go-ldap/ldap/v3"
)

// GroupsOf resolves the set of group DNs the user belongs to: the values of
// the membership attribute plus, when the primary-group attribute is
// present, the one group found through the primary-group indirection. The
// result is deduplicated.
//
// Failures of any kind collapse into an empty result and are never cached,
// so the next request retries against the directory. Callers pairing this
// with Authenticate cannot tell "no groups" from "lookup failed", which is
// the point: group state must not leak through deny decisions.
func (r *Realm) GroupsOf(ctx context.Context, user, password string) []string {
	log := logutil.GetOrDefault(ctx)
	dn := r.UserDN(user)
	if dn == "" {
		return nil
	}
	if groups, ok := r.cache.groupSet(dn); ok {
		log.Debug().Str("dn", dn).Msg("Group cache hit")
		return groups
	}
	attrs := []string{r.cfg.MemberAttr}
	if r.cfg.PrimaryGroupAttr != "" {
		attrs = append(attrs, r.cfg.PrimaryGroupAttr)
	}
	req := ldap.NewSearchRequest(dn,
		ldap.ScopeBaseObject, ldap.NeverDerefAliases, 0, 0, false,
		fmt.Sprintf("(objectClass=%s)", ldap.EscapeFilter(r.cfg.PersonClass)),
		attrs,
		nil)
	res, err := r.conn.search(ctx, dn, password, req)
	if err != nil {
		log.Warn().Err(err).Str("dn", dn).Msg("User lookup failed")
		return nil
	}
	if len(res.Entries) != 1 {
		log.Warn().Err(AmbiguousEntry{DN: dn, Count: len(res.Entries)}).Msg("User lookup not unique, denying group resolution")
		return nil
	}
	entry := res.Entries[0]
	var groups []string
	seen := map[string]bool{}
	add := func(groupDN string) {
		folded := strings.ToLower(groupDN)
		if groupDN == "" || seen[folded] {
			return
		}
		seen[folded] = true
		groups = append(groups, groupDN)
	}
	for _, groupDN := range entry.GetAttributeValues(r.cfg.MemberAttr) {
		add(groupDN)
	}
	if r.cfg.PrimaryGroupAttr != "" {
		if gid := entry.GetAttributeValue(r.cfg.PrimaryGroupAttr); gid != "" {
			primary, err := r.primaryGroup(ctx, dn, password, gid)
			if err != nil {
				log.Warn().Err(err).Str("dn", dn).Str("gid", gid).Msg("Primary group resolution failed")
				return nil
			}
			add(primary)
		}
	}
	if groups == nil {
		// cached empty set, distinct from a miss
		groups = []string{}
	}
	r.cache.storeGroupSet(dn, groups, r.cfg.GroupTTL)
	return groups
}

// primaryGroup maps the numeric primary-group id to the DN of the single
// group entry carrying it.
func (r *Realm) primaryGroup(ctx context.Context, dn, password, gid string) (string, error) {
	req := ldap.NewSearchRequest(r.cfg.GroupBase,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		fmt.Sprintf("(&(objectClass=%s)(%s=%s))",
			ldap.EscapeFilter(r.cfg.GroupClass),
			r.cfg.GroupIDAttr,
			ldap.EscapeFilter(gid)),
		[]string{r.cfg.GroupIDAttr},
		nil)
	res, err := r.conn.search(ctx, dn, password, req)
	if err != nil {
		return "", err
	}
	if len(res.Entries) != 1 {
		return "", AmbiguousEntry{DN: fmt.Sprintf("%s=%s under %s", r.cfg.GroupIDAttr, gid, r.cfg.GroupBase), Count: len(res.Entries)}
	}
	return res.Entries[0].DN, nil
}
