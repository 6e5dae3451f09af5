// Package lookup resolves the address a DNS name currently publishes.
package lookup

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/miekg/dns"
)

// DefaultTimeout bounds a single lookup.
const DefaultTimeout = 5 * time.Second

// Resolver looks up A records, either through a forced DNS server or the
// system resolver.
type Resolver struct {
	server  string // host:port; empty means the system resolver
	timeout time.Duration
	log     logr.Logger
}

// New returns a Resolver. When server is a valid IP address, optionally with
// a port, queries go straight to it. Anything else falls back to the system
// resolver. A zero timeout means DefaultTimeout.
func New(log logr.Logger, server string, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r := &Resolver{timeout: timeout, log: log}

	server = strings.TrimSpace(server)
	if server == "" {
		return r
	}
	if ap, err := netip.ParseAddrPort(server); err == nil {
		r.server = ap.String()
		return r
	}
	if addr, err := netip.ParseAddr(server); err == nil {
		r.server = net.JoinHostPort(addr.String(), "53")
		return r
	}
	log.V(1).Info("dnsserver is not an IP address, using system resolver", "dnsserver", server)
	return r
}

// Server returns the forced server as host:port, or "" for the system resolver.
func (r *Resolver) Server() string {
	return r.server
}

// LookupA returns the first IPv4 address published for fqdn.
func (r *Resolver) LookupA(ctx context.Context, fqdn string) (string, error) {
	if r.server == "" {
		return r.lookupSystem(ctx, fqdn)
	}
	return r.lookupServer(ctx, fqdn)
}

func (r *Resolver) lookupServer(ctx context.Context, fqdn string) (string, error) {
	c := &dns.Client{Timeout: r.timeout}
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(fqdn), dns.TypeA)

	in, rtt, err := c.ExchangeContext(ctx, m, r.server)
	if err != nil {
		return "", fmt.Errorf("querying %s for %s: %w", r.server, fqdn, err)
	}
	r.log.V(1).Info("dns query answered", "server", r.server, "name", fqdn, "rtt", rtt, "rcode", dns.RcodeToString[in.Rcode])
	if in.Rcode != dns.RcodeSuccess {
		return "", fmt.Errorf("querying %s for %s: %s", r.server, fqdn, dns.RcodeToString[in.Rcode])
	}

	// CNAME chains come back ahead of the address records.
	for _, rr := range in.Answer {
		if a, ok := rr.(*dns.A); ok {
			return a.A.String(), nil
		}
	}
	return "", fmt.Errorf("no A record for %s at %s", fqdn, r.server)
}

func (r *Resolver) lookupSystem(ctx context.Context, fqdn string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip4", fqdn)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", fqdn, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("no A record for %s", fqdn)
	}
	return addrs[0].Unmap().String(), nil
}
