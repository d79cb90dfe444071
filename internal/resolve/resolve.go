// Package resolve maps an inbound request to a registered site domain. It
// carries the domain grammar (including the wildcard-subdomain marker) and
// the matching predicate; the actual store lookups stay with the caller so
// everything here is pure and safe under concurrent use.
package resolve

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

// WildcardPrefix marks a registered domain as "this domain's subdomains".
const WildcardPrefix = "*."

var (
	// ErrMissingDomain means no domain could be determined at all.
	ErrMissingDomain = errors.New("no domain could be determined")
	// ErrNotRegistered means a domain was determined but no site matches.
	ErrNotRegistered = errors.New("domain is not registered")
)

var labelPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// Site is a parsed registered domain.
type Site struct {
	// Domain is the normalized authored form, wildcard marker included.
	Domain string
	// Wildcard reports whether the authored form carried the marker.
	Wildcard bool
	// Base is the domain with any wildcard marker stripped.
	Base string
}

// Parse normalizes and validates a registered site domain, splitting off the
// wildcard marker into an explicit flag plus base domain.
func Parse(value string) (Site, error) {
	domain := strings.ToLower(strings.TrimSpace(value))
	wildcard := strings.HasPrefix(domain, WildcardPrefix)
	base := strings.TrimPrefix(domain, WildcardPrefix)

	normalized, err := Normalize(base)
	if err != nil {
		return Site{}, err
	}

	out := Site{Domain: normalized, Wildcard: wildcard, Base: normalized}
	if wildcard {
		out.Domain = WildcardPrefix + normalized
	}
	return out, nil
}

// Normalize lowercases and validates a request or base domain. Wildcard
// markers are not accepted here; use Parse for authored site domains.
func Normalize(value string) (string, error) {
	domain := strings.ToLower(strings.TrimSpace(value))
	if domain == "" {
		return "", fmt.Errorf("domain is required")
	}
	if strings.HasSuffix(domain, ".") {
		return "", fmt.Errorf("domain must not have a trailing dot")
	}
	if len(domain) > 253 {
		return "", fmt.Errorf("domain exceeds maximum length of 253 characters")
	}
	// Port-qualified hosts arrive via window.location.host.
	if host, _, err := net.SplitHostPort(domain); err == nil {
		domain = host
	}
	if ip := net.ParseIP(domain); ip != nil {
		return domain, nil
	}
	for _, label := range strings.Split(domain, ".") {
		if label == "" {
			return "", fmt.Errorf("domain contains an empty label")
		}
		if label != "localhost" && !labelPattern.MatchString(label) {
			return "", fmt.Errorf("invalid domain label %q", label)
		}
	}
	return domain, nil
}

// Matches reports whether a wildcard site with the given base domain covers
// requestDomain. Only true subdomains match; the bare base domain must be
// registered exactly to resolve.
func (s Site) Matches(requestDomain string) bool {
	if !s.Wildcard {
		return s.Base == requestDomain
	}
	return strings.HasSuffix(requestDomain, "."+s.Base) && requestDomain != "."+s.Base
}

// RequestDomain determines the domain for a bundle request: the explicit
// site parameter when non-empty, else the host of the referring page.
func RequestDomain(siteParam, referer string) (string, error) {
	if v := strings.TrimSpace(siteParam); v != "" {
		return Normalize(v)
	}
	if host := refererHost(referer); host != "" {
		return Normalize(host)
	}
	return "", ErrMissingDomain
}

func refererHost(referer string) string {
	referer = strings.TrimSpace(referer)
	if referer == "" {
		return ""
	}
	u, err := url.Parse(referer)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
