// Package dummy provides drivers that touch no network, for trying out a
// configuration.
package dummy

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/ddns"
)

// DefaultIP is returned by Source when no ip setting is given.
const DefaultIP = "127.0.0.1"

func init() {
	ddns.RegisterSource("dummy", func(log logr.Logger, settings map[string]string) (ddns.AddressSource, error) {
		return NewSource(log, settings)
	})
	ddns.RegisterService("dummy", func(log logr.Logger, settings map[string]string) (ddns.Service, error) {
		return NewService(log, settings), nil
	})
}

// Source always reports the same address.
type Source struct {
	ip  string
	log logr.Logger
}

// NewSource creates a fixed-address source.
// Optional settings: ip (default 127.0.0.1).
func NewSource(log logr.Logger, settings map[string]string) (*Source, error) {
	ip := settings["ip"]
	if ip == "" {
		ip = DefaultIP
	}
	if !ddns.ValidIP(ip) {
		return nil, fmt.Errorf("dummy: invalid ip %q: %w", ip, ddns.ErrServiceConfig)
	}
	return &Source{ip: ip, log: log}, nil
}

// GetIP returns the configured address.
func (s *Source) GetIP(context.Context) (string, error) {
	s.log.V(1).Info("returning fixed address", "ip", s.ip)
	return s.ip, nil
}

// Service accepts every update without doing anything.
type Service struct {
	log logr.Logger
}

// NewService creates a service that records nothing.
func NewService(log logr.Logger, _ map[string]string) *Service {
	return &Service{log: log}
}

// Update logs ip and reports success.
func (s *Service) Update(_ context.Context, ip string) (bool, error) {
	s.log.V(1).Info("pretending to update", "ip", ip)
	return true, nil
}
