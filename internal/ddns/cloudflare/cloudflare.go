// Package cloudflare keeps an A record in a Cloudflare zone up to date.
package cloudflare

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cloudflare/cloudflare-go"
	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/ddns"
)

func init() {
	ddns.RegisterService("cloudflare", func(log logr.Logger, settings map[string]string) (ddns.Service, error) {
		return New(log, settings)
	})
}

// Service implements ddns.Service using the Cloudflare v4 API.
type Service struct {
	api     *cloudflare.API
	host    string
	domain  string
	ttl     int
	proxied *bool
	log     logr.Logger
}

// New creates a Cloudflare service from the given settings map.
// Required settings: host, domain (the zone name), token (API token with DNS edit rights).
// Optional settings: ttl (default 1, automatic), proxied, endpoint.
func New(log logr.Logger, settings map[string]string) (*Service, error) {
	if err := ddns.RequireSettings("cloudflare", settings, "host", "domain", "token"); err != nil {
		return nil, err
	}

	ttl := 1
	if v := settings["ttl"]; v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("cloudflare: invalid ttl %q: %w", v, ddns.ErrServiceConfig)
		}
		ttl = parsed
	}

	var proxied *bool
	if v := settings["proxied"]; v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("cloudflare: invalid proxied %q: %w", v, ddns.ErrServiceConfig)
		}
		proxied = &parsed
	}

	var opts []cloudflare.Option
	if v := settings["endpoint"]; v != "" {
		opts = append(opts, cloudflare.BaseURL(v))
	}
	api, err := cloudflare.NewWithAPIToken(settings["token"], opts...)
	if err != nil {
		return nil, fmt.Errorf("cloudflare: creating api client: %w: %w", ddns.ErrServiceConfig, err)
	}

	return &Service{
		api:     api,
		host:    settings["host"],
		domain:  settings["domain"],
		ttl:     ttl,
		proxied: proxied,
		log:     log,
	}, nil
}

// Update points host.domain at ip, creating the record if the zone has none.
func (s *Service) Update(ctx context.Context, ip string) (bool, error) {
	fqdn := ddns.JoinHostname(s.host, s.domain)

	zoneID, err := s.zoneID(ctx)
	if err != nil {
		return false, fmt.Errorf("cloudflare: %w: %w", ddns.ErrServiceUpdateFailed, err)
	}
	rc := cloudflare.ZoneIdentifier(zoneID)

	records, _, err := s.api.ListDNSRecords(ctx, rc, cloudflare.ListDNSRecordsParams{
		Type:       "A",
		Name:       fqdn,
		ResultInfo: cloudflare.ResultInfo{Page: 1, PerPage: 100},
	})
	if err != nil {
		return false, fmt.Errorf("cloudflare: listing records for %s: %w: %w", fqdn, ddns.ErrServiceUpdateFailed, err)
	}

	if len(records) == 0 {
		s.log.V(1).Info("no record found, creating", "fqdn", fqdn, "ip", ip)
		_, err := s.api.CreateDNSRecord(ctx, rc, cloudflare.CreateDNSRecordParams{
			Type:    "A",
			Name:    fqdn,
			Content: ip,
			TTL:     s.ttl,
			Proxied: s.proxied,
		})
		if err != nil {
			return false, fmt.Errorf("cloudflare: creating record for %s: %w: %w", fqdn, ddns.ErrServiceUpdateFailed, err)
		}
		s.log.V(1).Info("record created", "fqdn", fqdn, "ip", ip)
		return true, nil
	}

	record := records[0]
	if record.Content == ip {
		s.log.V(1).Info("host IP is current, not updating", "fqdn", fqdn, "ip", ip)
		return true, nil
	}

	s.log.V(1).Info("host has old IP, updating", "fqdn", fqdn, "old", record.Content, "new", ip)
	_, err = s.api.UpdateDNSRecord(ctx, rc, cloudflare.UpdateDNSRecordParams{
		ID:      record.ID,
		Type:    "A",
		Name:    fqdn,
		Content: ip,
		TTL:     s.ttl,
		Proxied: s.proxied,
	})
	if err != nil {
		return false, fmt.Errorf("cloudflare: updating record %s for %s: %w: %w", record.ID, fqdn, ddns.ErrServiceUpdateFailed, err)
	}
	s.log.V(1).Info("record updated", "fqdn", fqdn, "id", record.ID)
	return true, nil
}

func (s *Service) zoneID(ctx context.Context) (string, error) {
	zones, err := s.api.ListZonesContext(ctx, cloudflare.WithZoneFilters(s.domain, "", ""))
	if err != nil {
		return "", fmt.Errorf("looking up zone %s: %w", s.domain, err)
	}
	for _, z := range zones.Result {
		if z.Name == s.domain {
			return z.ID, nil
		}
	}
	return "", fmt.Errorf("zone %s not found", s.domain)
}
