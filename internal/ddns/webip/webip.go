// Package webip discovers the public address by asking a "what is my IP"
// web service.
package webip

import (
	"bufio"
	"context"
	"fmt"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-resty/resty/v2"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/ddns"
)

const (
	DefaultURL     = "https://checkip.amazonaws.com/"
	DefaultTimeout = 15 * time.Second
)

func init() {
	ddns.RegisterSource("webip", func(log logr.Logger, settings map[string]string) (ddns.AddressSource, error) {
		return New(log, settings)
	})
}

// Source fetches the address as the first line of an HTTP response body.
type Source struct {
	url    string
	client *resty.Client
	log    logr.Logger
}

// New creates a web address source.
// Optional settings: ipurl (default checkip.amazonaws.com), timeout (default 15s).
func New(log logr.Logger, settings map[string]string) (*Source, error) {
	ipURL := settings["ipurl"]
	if ipURL == "" {
		ipURL = DefaultURL
	}
	u, err := url.Parse(ipURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("webip: invalid ipurl %q: %w", ipURL, ddns.ErrServiceConfig)
	}

	timeout := DefaultTimeout
	if v := settings["timeout"]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("webip: invalid timeout %q: %w", v, ddns.ErrServiceConfig)
		}
		timeout = d
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Cache-Control", "no-cache")

	return &Source{url: ipURL, client: client, log: log}, nil
}

// GetIP fetches the configured URL and returns the address on its first line.
func (s *Source) GetIP(ctx context.Context) (string, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.url)
	if err != nil {
		return "", fmt.Errorf("webip: GET %s: %w: %w", s.url, ddns.ErrAddressUnavailable, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("webip: GET %s returned %s: %w", s.url, resp.Status(), ddns.ErrAddressUnavailable)
	}

	line, _ := bufio.NewReader(strings.NewReader(resp.String())).ReadString('\n')
	addr, err := netip.ParseAddr(strings.TrimSpace(line))
	if err != nil {
		return "", fmt.Errorf("webip: parsing response from %s: %w: %w", s.url, ddns.ErrAddressUnavailable, err)
	}

	s.log.V(1).Info("fetched public address", "url", s.url, "ip", addr.String())
	return addr.String(), nil
}
