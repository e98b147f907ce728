// Package whitelist answers whether a page origin may use a feature.
package whitelist

import (
	"fmt"
	"net/url"
	"strings"
)

// Entry grants features to an origin. Origin "*" matches every origin.
type Entry struct {
	Origin     string   `json:"origin" yaml:"origin" toml:"origin"`
	Subdomains bool     `json:"subdomains" yaml:"subdomains" toml:"subdomains"`
	Features   []string `json:"features" yaml:"features" toml:"features"`
}

type rule struct {
	any        bool
	scheme     string
	host       string
	subdomains bool
	features   map[string]struct{}
}

// Whitelist is immutable after New.
type Whitelist struct {
	rules []rule
}

// New validates entries and builds the lookup rules.
func New(entries []Entry) (*Whitelist, error) {
	w := &Whitelist{}
	for i, e := range entries {
		r := rule{subdomains: e.Subdomains, features: make(map[string]struct{}, len(e.Features))}
		if strings.TrimSpace(e.Origin) == "*" {
			r.any = true
		} else {
			scheme, host, err := splitOrigin(e.Origin)
			if err != nil {
				return nil, fmt.Errorf("whitelist entry %d: %w", i, err)
			}
			r.scheme, r.host = scheme, host
		}
		for _, f := range e.Features {
			if f = strings.TrimSpace(f); f != "" {
				r.features[f] = struct{}{}
			}
		}
		w.rules = append(w.rules, r)
	}
	return w, nil
}

// IsFeatureAllowed reports whether any rule matching origin lists feature.
func (w *Whitelist) IsFeatureAllowed(origin, feature string) bool {
	if w == nil || feature == "" {
		return false
	}
	scheme, host, err := splitOrigin(origin)
	if err != nil {
		scheme, host = "", ""
	}
	for _, r := range w.rules {
		if !r.any && (err != nil || !r.matches(scheme, host)) {
			continue
		}
		if _, ok := r.features[feature]; ok {
			return true
		}
	}
	return false
}

func (r rule) matches(scheme, host string) bool {
	if scheme != r.scheme {
		return false
	}
	if host == r.host {
		return true
	}
	return r.subdomains && r.host != "" && strings.HasSuffix(host, "."+r.host)
}

func splitOrigin(origin string) (string, string, error) {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return "", "", fmt.Errorf("empty origin")
	}
	u, err := url.Parse(origin)
	if err != nil {
		return "", "", fmt.Errorf("origin %q: %w", origin, err)
	}
	if u.Scheme == "" {
		return "", "", fmt.Errorf("origin %q has no scheme", origin)
	}
	return strings.ToLower(u.Scheme), strings.ToLower(u.Host), nil
}
