package ddns

import (
	"errors"
	"testing"
)

func TestJoinHostname(t *testing.T) {
	tests := []struct {
		host, domain, want string
	}{
		{"app", "example.com", "app.example.com"},
		{"sub.app", "example.com", "sub.app.example.com"},
		{"@", "example.com", "example.com"},
		{"", "example.com", "example.com"},
		{"app.", "example.com.", "app.example.com"},
		{"app", "", "app"},
	}

	for _, tt := range tests {
		t.Run(tt.host+"/"+tt.domain, func(t *testing.T) {
			if got := JoinHostname(tt.host, tt.domain); got != tt.want {
				t.Errorf("JoinHostname(%q, %q) = %q, want %q", tt.host, tt.domain, got, tt.want)
			}
		})
	}
}

func TestValidIP(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"203.0.113.7", true},
		{"2001:db8::1", true},
		{" 203.0.113.7\n", true},
		{"", false},
		{"example.com", false},
		{"300.1.1.1", false},
	}

	for _, tt := range tests {
		if got := ValidIP(tt.in); got != tt.want {
			t.Errorf("ValidIP(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRequireSettings(t *testing.T) {
	settings := map[string]string{"host": "home", "domain": ""}

	if err := RequireSettings("test", settings, "host"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := RequireSettings("test", settings, "host", "domain", "token")
	if !errors.Is(err, ErrServiceConfig) {
		t.Fatalf("expected ErrServiceConfig, got %v", err)
	}
	if want := "test: missing required setting 'domain': invalid driver settings"; err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}
