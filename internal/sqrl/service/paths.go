package service

import (
	"slices"
	"strings"
)

// PathRule configures how logins that originate under Prefix are handled.
type PathRule struct {
	Prefix string

	// AskEligible paths route logins through the Ask confirmation round when
	// the host has a question for them.
	AskEligible bool

	// AuthenticateSeparately paths get their own session, scoped to Prefix,
	// instead of the site-wide one.
	AuthenticateSeparately bool

	// AllowRegistration overrides the global registration flag when set.
	AllowRegistration *bool
}

// PathRules resolves a request path to the most specific PathRule.
type PathRules struct {
	rules             []PathRule // longest prefix first
	allowRegistration bool
}

// NewPathRules builds a rule set. Prefixes are normalised to start with "/"
// and lose any trailing slash. A later rule with the same prefix replaces an
// earlier one.
func NewPathRules(allowRegistration bool, rules ...PathRule) *PathRules {
	byPrefix := make(map[string]PathRule, len(rules))
	for _, r := range rules {
		r.Prefix = normalisePath(r.Prefix)
		byPrefix[strings.ToLower(r.Prefix)] = r
	}

	out := make([]PathRule, 0, len(byPrefix))
	for _, r := range byPrefix {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b PathRule) int {
		if d := len(b.Prefix) - len(a.Prefix); d != 0 {
			return d
		}
		return strings.Compare(a.Prefix, b.Prefix)
	})

	return &PathRules{rules: out, allowRegistration: allowRegistration}
}

// Match returns the rule with the longest prefix covering path. Matching is
// per segment and case-insensitive: "/a/b" covers "/A/b/c" but not "/a/bc".
func (p *PathRules) Match(path string) (PathRule, bool) {
	path = normalisePath(path)
	for _, r := range p.rules {
		if hasSegmentPrefix(path, r.Prefix) {
			return r, true
		}
	}
	return PathRule{}, false
}

// Allowed reports whether nuts may be issued for path at all.
func (p *PathRules) Allowed(path string) bool {
	_, ok := p.Match(path)
	return ok
}

// RegistrationAllowed applies the per-path override, if any, to the global flag.
func (p *PathRules) RegistrationAllowed(path string) bool {
	r, ok := p.Match(path)
	if ok && r.AllowRegistration != nil {
		return *r.AllowRegistration
	}
	return p.allowRegistration
}

// Rules returns a copy of the configured rules, longest prefix first.
func (p *PathRules) Rules() []PathRule {
	return slices.Clone(p.rules)
}

func normalisePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

func hasSegmentPrefix(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	if len(path) < len(prefix) || !strings.EqualFold(path[:len(prefix)], prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
