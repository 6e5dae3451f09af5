// Package digitalocean keeps an A record in a DigitalOcean domain up to date.
package digitalocean

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/digitalocean/godo"
	"github.com/go-logr/logr"
	"golang.org/x/oauth2"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/ddns"
)

const (
	recordType = "A"
	defaultTTL = 1800
	pageSize   = 200
)

func init() {
	ddns.RegisterService("digitalocean", func(log logr.Logger, settings map[string]string) (ddns.Service, error) {
		return New(log, settings)
	})
}

// Service implements ddns.Service using the DigitalOcean domains API.
type Service struct {
	client *godo.Client
	host   string
	domain string
	ttl    int
	log    logr.Logger
}

// New creates a DigitalOcean service from the given settings map.
// Required settings: host ("@" for the apex), domain, token.
// Optional settings: ttl (default 1800), endpoint.
func New(log logr.Logger, settings map[string]string) (*Service, error) {
	if err := ddns.RequireSettings("digitalocean", settings, "host", "domain", "token"); err != nil {
		return nil, err
	}

	ttl := defaultTTL
	if v := settings["ttl"]; v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("digitalocean: invalid ttl %q: %w", v, ddns.ErrServiceConfig)
		}
		ttl = parsed
	}

	var opts []godo.ClientOpt
	if v := settings["endpoint"]; v != "" {
		opts = append(opts, godo.SetBaseURL(strings.TrimSuffix(v, "/")+"/"))
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: settings["token"]})
	client, err := godo.New(oauth2.NewClient(context.Background(), tokenSource), opts...)
	if err != nil {
		return nil, fmt.Errorf("digitalocean: creating api client: %w: %w", ddns.ErrServiceConfig, err)
	}

	return &Service{
		client: client,
		host:   settings["host"],
		domain: settings["domain"],
		ttl:    ttl,
		log:    log,
	}, nil
}

// Update points the host's A record at ip, creating it if the domain has none.
func (s *Service) Update(ctx context.Context, ip string) (bool, error) {
	fqdn := ddns.JoinHostname(s.host, s.domain)

	existing, err := s.findRecord(ctx)
	if err != nil {
		return false, fmt.Errorf("digitalocean: listing records for %s: %w: %w", s.domain, ddns.ErrServiceUpdateFailed, err)
	}

	editRequest := &godo.DomainRecordEditRequest{
		Type: recordType,
		Name: s.host,
		Data: ip,
		TTL:  s.ttl,
	}

	if existing == nil {
		s.log.V(1).Info("no record found, creating", "fqdn", fqdn, "ip", ip)
		_, res, err := s.client.Domains.CreateRecord(ctx, s.domain, editRequest)
		if err = checkResponse(res, err); err != nil {
			return false, fmt.Errorf("digitalocean: creating record for %s: %w: %w", fqdn, ddns.ErrServiceUpdateFailed, err)
		}
		return true, nil
	}

	if existing.Data == ip {
		s.log.V(1).Info("host IP is current, not updating", "fqdn", fqdn, "ip", ip)
		return true, nil
	}

	s.log.V(1).Info("host has old IP, updating", "fqdn", fqdn, "old", existing.Data, "new", ip)
	_, res, err := s.client.Domains.EditRecord(ctx, s.domain, existing.ID, editRequest)
	if err = checkResponse(res, err); err != nil {
		return false, fmt.Errorf("digitalocean: updating record %d for %s: %w: %w", existing.ID, fqdn, ddns.ErrServiceUpdateFailed, err)
	}
	s.log.V(1).Info("record updated", "fqdn", fqdn, "id", existing.ID)
	return true, nil
}

// findRecord returns the first A record named host, or nil if there is none.
// It walks every page of the domain's records.
func (s *Service) findRecord(ctx context.Context) (*godo.DomainRecord, error) {
	opt := &godo.ListOptions{Page: 1, PerPage: pageSize}
	for {
		records, res, err := s.client.Domains.Records(ctx, s.domain, opt)
		if err = checkResponse(res, err); err != nil {
			return nil, err
		}
		for i := range records {
			if records[i].Type == recordType && records[i].Name == s.host {
				return &records[i], nil
			}
		}

		if res == nil || res.Links == nil || res.Links.IsLastPage() {
			return nil, nil
		}
		page, err := res.Links.CurrentPage()
		if err != nil {
			return nil, fmt.Errorf("reading page links: %w", err)
		}
		opt.Page = page + 1
	}
}

func checkResponse(res *godo.Response, err error) error {
	if err != nil {
		return err
	}
	if res != nil {
		return godo.CheckResponse(res.Response)
	}
	return nil
}
