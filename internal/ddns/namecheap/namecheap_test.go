package namecheap

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	logrtesting "github.com/go-logr/logr/testing"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/ddns"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/lookup"
)

const successXML = `<?xml version="1.0" encoding="utf-16"?>
<interface-response>
  <Command>SETDNSHOST</Command>
  <Language>eng</Language>
  <IP>203.0.113.9</IP>
  <ErrCount>0</ErrCount>
  <errors />
  <ResponseCount>0</ResponseCount>
  <Done>true</Done>
  <debug><![CDATA[]]></debug>
</interface-response>`

const passwordErrorXML = `<?xml version="1.0" encoding="utf-16"?>
<interface-response>
  <Command>SETDNSHOST</Command>
  <Language>eng</Language>
  <ErrCount>1</ErrCount>
  <errors>
    <Err1>Passwords do not match</Err1>
  </errors>
  <ResponseCount>1</ResponseCount>
  <Done>true</Done>
</interface-response>`

type fakeResolver struct {
	addrs map[string]string
	err   error
}

func (f *fakeResolver) LookupA(_ context.Context, fqdn string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.addrs[fqdn], nil
}

// fakeNamecheap serves a fixed update response and records the queries it receives.
type fakeNamecheap struct {
	mu      sync.Mutex
	status  int
	body    string
	queries []map[string]string
}

func (f *fakeNamecheap) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := map[string]string{}
	for k := range r.URL.Query() {
		q[k] = r.URL.Query().Get(k)
	}
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(f.status)
	io.WriteString(w, f.body)
}

func (f *fakeNamecheap) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func newService(t *testing.T, endpoint string, res resolver) *Service {
	t.Helper()
	s, err := New(logrtesting.NewTestLogger(t), map[string]string{
		"host":     "home",
		"domain":   "example.com",
		"password": "s3cret",
		"endpoint": endpoint,
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	s.resolver = res
	return s
}

func TestNew_MissingSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]string
		missing  string
	}{
		{"no host", map[string]string{"domain": "example.com", "password": "x"}, "host"},
		{"no domain", map[string]string{"host": "home", "password": "x"}, "domain"},
		{"no password", map[string]string{"host": "home", "domain": "example.com"}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(logr.Discard(), tt.settings)
			if !errors.Is(err, ddns.ErrServiceConfig) {
				t.Fatalf("expected ErrServiceConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.missing) {
				t.Errorf("expected error to mention %q, got %q", tt.missing, err.Error())
			}
		})
	}
}

func TestNew_DNSServer(t *testing.T) {
	s, err := New(logr.Discard(), map[string]string{
		"host": "home", "domain": "example.com", "password": "x", "dnsserver": "1.1.1.1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.resolver.(*lookup.Resolver).Server(); got != "1.1.1.1:53" {
		t.Errorf("expected forced server 1.1.1.1:53, got %q", got)
	}
	if s.endpoint != DefaultEndpoint {
		t.Errorf("expected default endpoint, got %q", s.endpoint)
	}
}

func TestUpdate_AlreadyCurrent(t *testing.T) {
	fake := &fakeNamecheap{status: http.StatusOK, body: successXML}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s := newService(t, srv.URL, &fakeResolver{addrs: map[string]string{"home.example.com": "203.0.113.9"}})

	ok, err := s.Update(context.Background(), "203.0.113.9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected success")
	}
	if fake.calls() != 0 {
		t.Errorf("expected no update calls, got %d", fake.calls())
	}
}

func TestUpdate_ChangedAddress(t *testing.T) {
	fake := &fakeNamecheap{status: http.StatusOK, body: successXML}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s := newService(t, srv.URL, &fakeResolver{addrs: map[string]string{"home.example.com": "198.51.100.1"}})

	ok, err := s.Update(context.Background(), "203.0.113.9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected success")
	}
	if fake.calls() != 1 {
		t.Fatalf("expected exactly 1 update call, got %d", fake.calls())
	}

	want := map[string]string{"host": "home", "domain": "example.com", "password": "s3cret", "ip": "203.0.113.9"}
	got := fake.queries[0]
	for k, v := range want {
		if got[k] != v {
			t.Errorf("expected query %s=%q, got %q", k, v, got[k])
		}
	}
}

func TestDecodeResponse(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCount int
		wantText  string
	}{
		{"utf-16 declaration on utf-8 body", successXML, 0, "ErrCount=0"},
		{"error detail", passwordErrorXML, 1, "Err1: Passwords do not match"},
		{"no declaration", "<interface-response><ErrCount>0</ErrCount></interface-response>", 0, "ErrCount=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeResponse([]byte(tt.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.XMLName.Local != "interface-response" {
				t.Errorf("expected interface-response root, got %q", got.XMLName.Local)
			}
			if got.ErrCount != tt.wantCount {
				t.Errorf("expected ErrCount %d, got %d", tt.wantCount, got.ErrCount)
			}
			if text := got.errorText(); text != tt.wantText {
				t.Errorf("expected error text %q, got %q", tt.wantText, text)
			}
		})
	}

	if _, err := decodeResponse([]byte("this is not xml")); err == nil {
		t.Error("expected error decoding non-XML body")
	}
}

func TestUpdate_Failures(t *testing.T) {
	tests := []struct {
		name      string
		resolver  *fakeResolver
		status    int
		body      string
		wantCalls int
		wantText  string
	}{
		{
			name:      "lookup error",
			resolver:  &fakeResolver{err: errors.New("SERVFAIL")},
			status:    http.StatusOK,
			body:      successXML,
			wantCalls: 0,
			wantText:  "DNS lookup failed",
		},
		{
			name:      "lookup returns non-address",
			resolver:  &fakeResolver{addrs: map[string]string{"home.example.com": "home.example.com"}},
			status:    http.StatusOK,
			body:      successXML,
			wantCalls: 0,
			wantText:  "DNS lookup failed",
		},
		{
			name:      "registrar errors",
			resolver:  &fakeResolver{addrs: map[string]string{"home.example.com": "198.51.100.1"}},
			status:    http.StatusOK,
			body:      passwordErrorXML,
			wantCalls: 1,
			wantText:  "rejected: Err1: Passwords do not match",
		},
		{
			name:      "unparseable body",
			resolver:  &fakeResolver{addrs: map[string]string{"home.example.com": "198.51.100.1"}},
			status:    http.StatusOK,
			body:      "this is not xml",
			wantCalls: 1,
			wantText:  "bad response",
		},
		{
			name:      "server error",
			resolver:  &fakeResolver{addrs: map[string]string{"home.example.com": "198.51.100.1"}},
			status:    http.StatusInternalServerError,
			body:      "oops",
			wantCalls: 1,
			wantText:  "bad response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeNamecheap{status: tt.status, body: tt.body}
			srv := httptest.NewServer(fake)
			defer srv.Close()

			s := newService(t, srv.URL, tt.resolver)

			ok, err := s.Update(context.Background(), "203.0.113.9")
			if ok {
				t.Error("expected failure")
			}
			if !errors.Is(err, ddns.ErrServiceUpdateFailed) {
				t.Fatalf("expected ErrServiceUpdateFailed, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantText) {
				t.Errorf("expected error to contain %q, got %q", tt.wantText, err.Error())
			}
			if fake.calls() != tt.wantCalls {
				t.Errorf("expected %d update calls, got %d", tt.wantCalls, fake.calls())
			}
		})
	}
}
