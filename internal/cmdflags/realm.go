package cmdflags

import (
	"time"

	"github.com/andrebq/dirgate/realm"
	"github.com/urfave/cli/v2"
)

// DirectoryURL points at the LDAP server, e.g. ldap://127.0.0.1:389 or
// ldaps://directory.example.org.
func DirectoryURL(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "directory-url",
		Aliases:     []string{"d"},
		Usage:       "URL of the LDAP directory to authenticate against",
		Destination: out,
		Value:       *out,
	}
}

// RequestTimeout bounds the whole authenticate-then-resolve chain for one
// request, including every directory round-trip.
func RequestTimeout(out *time.Duration) cli.Flag {
	return &cli.DurationFlag{
		Name:        "request-timeout",
		Usage:       "Upper bound for a single allow/deny decision, directory calls included",
		Destination: out,
		Value:       *out,
	}
}

// Realm returns the flag set configuring the decision engine itself. The
// defaults in cfg (usually realm.DefaultConfig) become the flag defaults.
func Realm(cfg *realm.Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "user-template",
			Usage:       "Template expanding a login name into a user DN, must contain one %s",
			Destination: &cfg.UserTemplate,
			Value:       cfg.UserTemplate,
		},
		&cli.StringFlag{
			Name:        "group-template",
			Usage:       "Template expanding a group name into a group DN, must contain one %s",
			Destination: &cfg.GroupTemplate,
			Value:       cfg.GroupTemplate,
		},
		&cli.StringFlag{
			Name:        "group-base",
			Usage:       "Base DN for resolving the primary-group indirection",
			Destination: &cfg.GroupBase,
			Value:       cfg.GroupBase,
		},
		&cli.StringFlag{
			Name:        "person-class",
			Usage:       "Object class expected on user entries",
			Destination: &cfg.PersonClass,
			Value:       cfg.PersonClass,
		},
		&cli.StringFlag{
			Name:        "group-class",
			Usage:       "Object class expected on group entries",
			Destination: &cfg.GroupClass,
			Value:       cfg.GroupClass,
		},
		&cli.StringFlag{
			Name:        "member-attr",
			Usage:       "User attribute listing group DNs",
			Destination: &cfg.MemberAttr,
			Value:       cfg.MemberAttr,
		},
		&cli.StringFlag{
			Name:        "primary-group-attr",
			Usage:       "User attribute holding the numeric primary group id (empty disables the indirection)",
			Destination: &cfg.PrimaryGroupAttr,
			Value:       cfg.PrimaryGroupAttr,
		},
		&cli.StringFlag{
			Name:        "group-id-attr",
			Usage:       "Group attribute matched against the primary group id",
			Destination: &cfg.GroupIDAttr,
			Value:       cfg.GroupIDAttr,
		},
		&cli.DurationFlag{
			Name:        "credential-ttl",
			Usage:       "How long a successful bind is trusted without re-checking",
			Destination: &cfg.CredentialTTL,
			Value:       cfg.CredentialTTL,
		},
		&cli.DurationFlag{
			Name:        "group-ttl",
			Usage:       "How long a resolved group set is trusted",
			Destination: &cfg.GroupTTL,
			Value:       cfg.GroupTTL,
		},
	}
}
