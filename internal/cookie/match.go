package cookie

import (
	"net/url"
	"strings"

	"github.com/YangchenYe323/hapi/internal/model"
)

// A cookie as held by the browser's cookie store.
type Record struct {
	Name   string
	Value  string
	Domain string
	Path   string
	Secure bool

	// Partitioned cookies belong to another top-level site's jar.
	Partitioned bool
}

// DomainMatch reports whether a cookie stored for cookieDomain belongs to
// domain or one of its subdomains. Leading dots are ignored on both sides.
func DomainMatch(cookieDomain, domain string) bool {
	c := strings.ToLower(strings.TrimPrefix(cookieDomain, "."))
	d := strings.ToLower(strings.TrimPrefix(domain, "."))
	if c == "" || d == "" {
		return false
	}
	return c == d || strings.HasSuffix(c, "."+d)
}

// ForDomain returns the unpartitioned records stored for domain or any
// subdomain.
func ForDomain(records []Record, domain string) []Record {
	var matched []Record
	for _, r := range records {
		if !r.Partitioned && DomainMatch(r.Domain, domain) {
			matched = append(matched, r)
		}
	}
	return matched
}

// Pairs converts records to pairs, percent-decoding values that decode
// cleanly and keeping the rest untouched.
func Pairs(records []Record) []model.CookiePair {
	pairs := make([]model.CookiePair, 0, len(records))
	for _, r := range records {
		pairs = append(pairs, model.CookiePair{Name: r.Name, Value: DecodeValue(r.Value)})
	}
	return pairs
}

func DecodeValue(v string) string {
	decoded, err := url.PathUnescape(v)
	if err != nil {
		return v
	}
	return decoded
}
