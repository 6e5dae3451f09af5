// Package upnp asks the local Internet Gateway Device for its external
// address over UPnP.
package upnp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/huin/goupnp/dcps/internetgateway2"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/ddns"
)

// DefaultTimeout bounds discovery plus the address query.
const DefaultTimeout = 10 * time.Second

func init() {
	ddns.RegisterSource("upnp", func(log logr.Logger, settings map[string]string) (ddns.AddressSource, error) {
		return New(log, settings)
	})
}

// gateway is the part of a WAN connection service client we call.
type gateway interface {
	GetExternalIPAddressCtx(ctx context.Context) (string, error)
}

type discoverFunc func(ctx context.Context) ([]gateway, error)

// Source reports the external address of the first gateway that answers.
type Source struct {
	timeout  time.Duration
	discover discoverFunc
	log      logr.Logger
}

// New creates a UPnP address source.
// Optional settings: timeout (default 10s).
func New(log logr.Logger, settings map[string]string) (*Source, error) {
	timeout := DefaultTimeout
	if v := settings["timeout"]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("upnp: invalid timeout %q: %w", v, ddns.ErrServiceConfig)
		}
		timeout = d
	}
	return &Source{timeout: timeout, discover: discoverGateways, log: log}, nil
}

type result struct {
	ip  string
	err error
}

// GetIP blocks until a gateway reports its address or the timeout expires.
func (s *Source) GetIP(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		ip, err := s.query(ctx)
		done <- result{ip: ip, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("upnp: %w: %w", ddns.ErrAddressUnavailable, r.err)
		}
		s.log.V(1).Info("gateway reported external address", "ip", r.ip)
		return r.ip, nil
	case <-ctx.Done():
		return "", fmt.Errorf("upnp: no gateway answered within %s: %w", s.timeout, ddns.ErrAddressUnavailable)
	}
}

func (s *Source) query(ctx context.Context) (string, error) {
	gateways, err := s.discover(ctx)
	if err != nil {
		return "", fmt.Errorf("discovering gateways: %w", err)
	}
	if len(gateways) == 0 {
		return "", errors.New("no UPnP gateway found")
	}
	s.log.V(1).Info("discovered gateways", "count", len(gateways))

	var errs []error
	for _, gw := range gateways {
		ip, err := gw.GetExternalIPAddressCtx(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ddns.ValidIP(ip) {
			errs = append(errs, fmt.Errorf("gateway returned invalid address %q", ip))
			continue
		}
		return ip, nil
	}
	return "", errors.Join(errs...)
}

// discoverGateways finds WANIPConnection and WANPPPConnection services on
// the local network.
func discoverGateways(ctx context.Context) ([]gateway, error) {
	var gateways []gateway

	ipClients, _, err := internetgateway2.NewWANIPConnection1ClientsCtx(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range ipClients {
		gateways = append(gateways, c)
	}

	pppClients, _, err := internetgateway2.NewWANPPPConnection1ClientsCtx(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range pppClients {
		gateways = append(gateways, c)
	}
	return gateways, nil
}
