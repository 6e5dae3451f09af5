package upnp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/ddns"
)

type fakeGateway struct {
	ip  string
	err error
}

func (f fakeGateway) GetExternalIPAddressCtx(context.Context) (string, error) {
	return f.ip, f.err
}

func newSource(t *testing.T, timeout time.Duration, discover discoverFunc) *Source {
	t.Helper()
	s, err := New(logr.Discard(), map[string]string{"timeout": timeout.String()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.discover = discover
	return s
}

func TestNew(t *testing.T) {
	s, err := New(logr.Discard(), map[string]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.timeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %s", s.timeout)
	}

	for _, v := range []string{"ten", "-1s", "0s"} {
		if _, err := New(logr.Discard(), map[string]string{"timeout": v}); !errors.Is(err, ddns.ErrServiceConfig) {
			t.Errorf("timeout %q: expected ErrServiceConfig, got %v", v, err)
		}
	}
}

func TestGetIP(t *testing.T) {
	tests := []struct {
		name     string
		gateways []gateway
		want     string
		wantErr  bool
	}{
		{
			name:     "single gateway",
			gateways: []gateway{fakeGateway{ip: "203.0.113.7"}},
			want:     "203.0.113.7",
		},
		{
			name: "first gateway fails",
			gateways: []gateway{
				fakeGateway{err: errors.New("SOAP fault")},
				fakeGateway{ip: "203.0.113.8"},
			},
			want: "203.0.113.8",
		},
		{
			name:     "invalid address",
			gateways: []gateway{fakeGateway{ip: ""}},
			wantErr:  true,
		},
		{
			name:    "no gateways",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSource(t, time.Second, func(context.Context) ([]gateway, error) {
				return tt.gateways, nil
			})

			got, err := s.GetIP(context.Background())
			if tt.wantErr {
				if !errors.Is(err, ddns.ErrAddressUnavailable) {
					t.Fatalf("expected ErrAddressUnavailable, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestGetIP_DiscoveryError(t *testing.T) {
	s := newSource(t, time.Second, func(context.Context) ([]gateway, error) {
		return nil, errors.New("multicast not permitted")
	})

	if _, err := s.GetIP(context.Background()); !errors.Is(err, ddns.ErrAddressUnavailable) {
		t.Fatalf("expected ErrAddressUnavailable, got %v", err)
	}
}

func TestGetIP_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	s := newSource(t, 50*time.Millisecond, func(ctx context.Context) ([]gateway, error) {
		// Simulates an SSDP search that ignores cancellation.
		<-release
		return nil, nil
	})

	start := time.Now()
	_, err := s.GetIP(context.Background())
	if !errors.Is(err, ddns.ErrAddressUnavailable) {
		t.Fatalf("expected ErrAddressUnavailable, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("GetIP did not honour the timeout, took %s", elapsed)
	}
}
