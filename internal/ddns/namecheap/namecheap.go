// Package namecheap updates Namecheap dynamic DNS host records.
package namecheap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-resty/resty/v2"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/ddns"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/lookup"
)

// DefaultEndpoint is Namecheap's dynamic DNS update URL.
const DefaultEndpoint = "https://dynamicdns.park-your-domain.com/update"

func init() {
	ddns.RegisterService("namecheap", func(log logr.Logger, settings map[string]string) (ddns.Service, error) {
		return New(log, settings)
	})
}

// resolver returns the address currently published for a name.
type resolver interface {
	LookupA(ctx context.Context, fqdn string) (string, error)
}

// Service implements ddns.Service for Namecheap dynamic DNS.
type Service struct {
	host     string
	domain   string
	password string
	endpoint string
	resolver resolver
	client   *resty.Client
	log      logr.Logger
}

// New creates a Namecheap service from the given settings map.
// Required settings: host, domain, password.
// Optional settings: dnsserver (IP of a server to check the current record
// against), endpoint.
func New(log logr.Logger, settings map[string]string) (*Service, error) {
	if err := ddns.RequireSettings("namecheap", settings, "host", "domain", "password"); err != nil {
		return nil, err
	}

	endpoint := settings["endpoint"]
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	log.V(1).Info("loaded namecheap service", "host", settings["host"], "domain", settings["domain"])

	return &Service{
		host:     settings["host"],
		domain:   settings["domain"],
		password: settings["password"],
		endpoint: endpoint,
		resolver: lookup.New(log.WithName("lookup"), settings["dnsserver"], 0),
		client:   resty.New().SetTimeout(30 * time.Second),
		log:      log,
	}, nil
}

// interfaceResponse is the XML document returned by the update endpoint.
//
//	<interface-response>
//	  <Command>SETDNSHOST</Command>
//	  <IP>203.0.113.7</IP>
//	  <ErrCount>1</ErrCount>
//	  <errors><Err1>Passwords do not match</Err1></errors>
//	  <Done>true</Done>
//	</interface-response>
type interfaceResponse struct {
	XMLName  xml.Name `xml:"interface-response"`
	Command  string   `xml:"Command"`
	IP       string   `xml:"IP"`
	ErrCount int      `xml:"ErrCount"`
	Errors   struct {
		Items []struct {
			XMLName xml.Name
			Text    string `xml:",chardata"`
		} `xml:",any"`
	} `xml:"errors"`
	Done bool `xml:"Done"`
}

// decodeResponse parses an update reply. The endpoint declares
// encoding="utf-16" while sending UTF-8, so the declared charset is ignored.
func decodeResponse(body []byte) (*interfaceResponse, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) {
		return r, nil
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"host":     s.host,
			"domain":   s.domain,
			"password": s.password,
			"ip":       ip,
		}).
		Get(s.endpoint)
	if err != nil {
		s.log.V(1).Info("invalid response", "fqdn", fqdn, "error", err)
		return false, fmt.Errorf("namecheap: bad response updating %s: %w: %w", fqdn, ddns.ErrServiceUpdateFailed, err)
	}
	if resp.IsError() {
		s.log.V(1).Info("invalid response", "fqdn", fqdn, "status", resp.Status())
		return false, fmt.Errorf("namecheap: bad response updating %s (%s): %w", fqdn, resp.Status(), ddns.ErrServiceUpdateFailed)
	}

	result, err := decodeResponse(resp.Body())
	if err != nil || result.XMLName.Local != "interface-response" {
		s.log.V(1).Info("invalid response", "fqdn", fqdn, "error", err)
		return false, fmt.Errorf("namecheap: bad response updating %s: %w", fqdn, ddns.ErrServiceUpdateFailed)
	}

	if result.ErrCount != 0 {
		detail := result.errorText()
		s.log.V(1).Info("update rejected", "fqdn", fqdn, "errors", detail)
		return false, fmt.Errorf("namecheap: update of %s rejected: %s: %w", fqdn, detail, ddns.ErrServiceUpdateFailed)
	}

	s.log.V(1).Info("successful update", "fqdn", fqdn, "ip", ip)
	return true, nil
}
