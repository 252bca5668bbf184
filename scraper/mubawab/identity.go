package mubawab

import (
	"fmt"
	"regexp"
	"strings"
)

// IdentityResolver derives the stable external identifier used to key all
// three tables from a listing URL. The identifier is a function of the URL
// alone, never of page content, so retries and repairs can never mint a
// second identity for the same listing.
type IdentityResolver struct {
	pattern *regexp.Regexp
}

// NewIdentityResolver builds a resolver for the given listing-kind path
// codes (e.g. "a", "pa"). The set is configurable because the site's URL
// scheme has grown new codes over time.
func NewIdentityResolver(kinds []string) *IdentityResolver {
	if len(kinds) == 0 {
		kinds = []string{"a", "pa"}
	}
	quoted := make([]string, len(kinds))
	for i, k := range kinds {
		quoted[i] = regexp.QuoteMeta(k)
	}
	return &IdentityResolver{
		pattern: regexp.MustCompile(fmt.Sprintf(`/(%s)/(\d+)`, strings.Join(quoted, "|"))),
	}
}

// ExternalID extracts a combined identifier such as "a8037244" or
// "pa4634098" from any URL containing a /<kind>/<digits> segment. Returns
// "" when no segment matches.
func (r *IdentityResolver) ExternalID(url string) string {
	match := r.pattern.FindStringSubmatch(url)
	if match == nil {
		return ""
	}
	return match[1] + match[2]
}
