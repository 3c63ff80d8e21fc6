package hostbridge

import (
	"net/url"
	"sort"
	"strings"
)

// OriginPolicy is an exact-match allow-list of document origins
type OriginPolicy struct {
	allowed map[string]struct{}
}

// NewOriginPolicy normalizes origins into an allow-list. Entries that are not
// a scheme and host are skipped.
func NewOriginPolicy(origins []string) *OriginPolicy {
	p := &OriginPolicy{allowed: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		if n, ok := normalizeOrigin(o); ok {
			p.allowed[n] = struct{}{}
		}
	}
	return p
}

// IsAllowed reports whether origin is on the allow-list
func (p *OriginPolicy) IsAllowed(origin string) bool {
	if p == nil {
		return false
	}
	n, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}
	_, allowed := p.allowed[n]
	return allowed
}

// Origins returns the normalized allow-list
func (p *OriginPolicy) Origins() []string {
	out := make([]string, 0, len(p.allowed))
	for o := range p.allowed {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}

// normalizeOrigin lowercases scheme and host and drops any path
func normalizeOrigin(origin string) (string, bool) {
	origin = strings.TrimSpace(origin)
	if origin == "" || origin == "null" {
		return "", false
	}
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" || u.User != nil {
		return "", false
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), true
}
