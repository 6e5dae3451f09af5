// Package opnsense points an Unbound host override on an OPNsense firewall
// at the current address.
package opnsense

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/ddns"
)

func init() {
	ddns.RegisterService("opnsense", func(log logr.Logger, settings map[string]string) (ddns.Service, error) {
		return New(log, settings)
	})
}

// Service implements ddns.Service for OPNsense Unbound DNS.
type Service struct {
	baseURL     string
	apiKey      string
	apiSecret   string
	host        string
	domain      string
	description string
	client      *http.Client
	log         logr.Logger
}

// New creates an OPNsense service from the given settings map.
// Required settings: host, domain, base_url, api_key, api_secret.
// Optional settings: description, skip_tls_verify (default false).
func New(log logr.Logger, settings map[string]string) (*Service, error) {
	if err := ddns.RequireSettings("opnsense", settings, "host", "domain", "base_url", "api_key", "api_secret"); err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if v := settings["skip_tls_verify"]; v == "true" {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	description := settings["description"]
	if description == "" {
		description = "managed by yk-ddns"
	}

	return &Service{
		baseURL:     settings["base_url"],
		apiKey:      settings["api_key"],
		apiSecret:   settings["api_secret"],
		host:        settings["host"],
		domain:      settings["domain"],
		description: description,
		client:      &http.Client{Transport: transport},
		log:         log,
	}, nil
}

// doRequest builds and executes an HTTP request against the OPNsense API.
func (s *Service) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	url := strings.TrimRight(s.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.SetBasicAuth(s.apiKey, s.apiSecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// call sends body to path and decodes the JSON reply into out.
func (s *Service) call(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := s.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// reconfigure tells OPNsense to apply DNS changes.
func (s *Service) reconfigure(ctx context.Context) error {
	var result struct {
		Status string `json:"status"`
	}
	if err := s.call(ctx, http.MethodPost, "unbound/service/reconfigure", struct{}{}, &result); err != nil {
		return fmt.Errorf("reconfigure: %w", err)
	}
	s.log.V(1).Info("reconfigure completed", "status", result.Status)
	return nil
}

// hostRow represents a single host override row from searchHostOverride.
type hostRow struct {
	UUID     string `json:"uuid"`
	Enabled  string `json:"enabled"`
	Hostname string `json:"hostname"`
	Domain   string `json:"domain"`
	RR       string `json:"rr"`
	Server   string `json:"server"`
}

// findOverride returns the A override for the configured host, or nil.
func (s *Service) findOverride(ctx context.Context) (*hostRow, error) {
	var sr struct {
		Rows []hostRow `json:"rows"`
	}
	if err := s.call(ctx, http.MethodGet, "unbound/settings/searchHostOverride", nil, &sr); err != nil {
		return nil, err
	}

	for i, row := range sr.Rows {
		if strings.EqualFold(row.Hostname, s.host) &&
			strings.EqualFold(row.Domain, s.domain) &&
			strings.EqualFold(row.RR, "A") {
			return &sr.Rows[i], nil
		}
	}
	return nil, nil
}

// hostBody creates the JSON body for add/set host override calls.
func (s *Service) hostBody(ip string) map[string]interface{} {
	return map[string]interface{}{
		"host": map[string]string{
			"enabled":     "1",
			"hostname":    s.host,
			"domain":      s.domain,
			"rr":          "A",
			"server":      ip,
			"description": s.description,
			"mxprio":      "",
			"mx":          "",
		},
	}
}

// Update points the host override at ip, creating it if it does not exist,
// then applies the change.
func (s *Service) Update(ctx context.Context, ip string) (bool, error) {
	fqdn := ddns.JoinHostname(s.host, s.domain)

	row, err := s.findOverride(ctx)
	if err != nil {
		return false, fmt.Errorf("opnsense: %w: %w", ddns.ErrServiceUpdateFailed, err)
	}

	path := "unbound/settings/addHostOverride"
	switch {
	case row == nil:
		s.log.V(1).Info("creating host override", "fqdn", fqdn, "ip", ip)
	case row.Server == ip:
		s.log.V(1).Info("host IP is current, not updating", "fqdn", fqdn, "ip", ip)
		return true, nil
	default:
		s.log.V(1).Info("host has old IP, updating", "fqdn", fqdn, "old", row.Server, "new", ip, "uuid", row.UUID)
		path = "unbound/settings/setHostOverride/" + row.UUID
	}

	var result struct {
		Result string `json:"result"`
		UUID   string `json:"uuid"`
	}
	if err := s.call(ctx, http.MethodPost, path, s.hostBody(ip), &result); err != nil {
		return false, fmt.Errorf("opnsense: %w: %w", ddns.ErrServiceUpdateFailed, err)
	}
	if result.Result != "saved" {
		return false, fmt.Errorf("opnsense: %s unexpected result %q: %w", path, result.Result, ddns.ErrServiceUpdateFailed)
	}

	if err := s.reconfigure(ctx); err != nil {
		return false, fmt.Errorf("opnsense: %w: %w", ddns.ErrServiceUpdateFailed, err)
	}
	s.log.V(1).Info("host override saved", "fqdn", fqdn, "ip", ip)
	return true, nil
}
