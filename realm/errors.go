package realm

import "fmt"

type (
	// DirectoryUnavailable indicates the directory could not be reached even
	// after retrying on a fresh connection. This is a service-health signal,
	// not a statement about the credentials that were being checked.
	DirectoryUnavailable struct {
		Cause error
	}

	// AmbiguousEntry indicates a lookup that must match exactly one entry
	// matched zero or several. Results derived from it are never cached.
	AmbiguousEntry struct {
		DN    string
		Count int
	}
)

func (d DirectoryUnavailable) Error() string {
	return fmt.Sprintf("directory unreachable after retry, cause %v", d.Cause)
}

func (d DirectoryUnavailable) Unwrap() error {
	return d.Cause
}

func (a AmbiguousEntry) Error() string {
	return fmt.Sprintf("expected exactly one entry for %v, directory returned %v", a.DN, a.Count)
}
