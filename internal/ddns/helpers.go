package ddns

import (
	"fmt"
	"net/netip"
	"strings"
)

// RequireSettings returns an ErrServiceConfig error naming the first key
// that is missing or empty in settings.
func RequireSettings(driver string, settings map[string]string, keys ...string) error {
	for _, k := range keys {
		if settings[k] == "" {
			return fmt.Errorf("%s: missing required setting '%s': %w", driver, k, ErrServiceConfig)
		}
	}
	return nil
}

// JoinHostname builds the FQDN for a host label within a domain.
// e.g. ("app", "example.com") → "app.example.com"
// e.g. ("@", "example.com") → "example.com"
func JoinHostname(host, domain string) string {
	host = strings.TrimSuffix(host, ".")
	domain = strings.Trim(domain, ".")
	switch {
	case host == "" || host == "@":
		return domain
	case domain == "":
		return host
	}
	return host + "." + domain
}

// ValidIP reports whether s is a syntactically valid IPv4 or IPv6 address.
func ValidIP(s string) bool {
	_, err := netip.ParseAddr(strings.TrimSpace(s))
	return err == nil
}
