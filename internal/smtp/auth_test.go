package smtp

import (
	"encoding/base64"
	"net/netip"
	"testing"

	"github.com/shineum/smtp-test-server/internal/config"
)

func TestLogin_PlainCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "simple", username: "user", password: "pwd"},
		{name: "empty password", username: "user", password: ""},
		{name: "unicode", username: "jürgen", password: "pässwörd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			want := "AUTH PLAIN " +
				base64.StdEncoding.EncodeToString([]byte("\x00"+tt.username+"\x00"+tt.password)) +
				"\r\n"
			got := Login{Username: tt.username, Password: tt.password}.plainCommand()
			if got != want {
				t.Errorf("plainCommand(): got %q, want %q", got, want)
			}
		})
	}
}

func TestLogin_PlainCommandKnownValue(t *testing.T) {
	t.Parallel()

	got := Login{Username: "user", Password: "pwd"}.plainCommand()
	if got != "AUTH PLAIN AHVzZXIAcHdk\r\n" {
		t.Errorf("plainCommand(): got %q", got)
	}
}

func TestAuthFor(t *testing.T) {
	t.Parallel()

	host := netip.MustParseAddr("127.0.0.1")

	tests := []struct {
		name   string
		addr   config.Address
		strict bool
		want   Auth
	}{
		{
			name:   "credentials",
			addr:   config.Address{Host: host, Username: "u", Password: "p", HasCredentials: true},
			strict: true,
			want:   Login{Username: "u", Password: "p"},
		},
		{
			name:   "empty credentials still login",
			addr:   config.Address{Host: host, HasCredentials: true},
			strict: false,
			want:   Login{},
		},
		{
			name:   "strict anonymous",
			addr:   config.Address{Host: host},
			strict: true,
			want:   AcceptAnonOnly{},
		},
		{
			name:   "lenient anonymous",
			addr:   config.Address{Host: host},
			strict: false,
			want:   AcceptAll{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := AuthFor(tt.addr, tt.strict); got != tt.want {
				t.Errorf("AuthFor(): got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestNormalizeAuth(t *testing.T) {
	t.Parallel()

	login := Login{Username: "u", Password: "p"}
	var nilLogin *Login

	tests := []struct {
		name string
		auth Auth
		want Auth
	}{
		{name: "nil", auth: nil, want: AcceptAnonOnly{}},
		{name: "login value", auth: login, want: login},
		{name: "login pointer", auth: &login, want: login},
		{name: "nil login pointer", auth: nilLogin, want: AcceptAnonOnly{}},
		{name: "accept all pointer", auth: &AcceptAll{}, want: AcceptAll{}},
		{name: "anon only pointer", auth: &AcceptAnonOnly{}, want: AcceptAnonOnly{}},
		{name: "accept all value", auth: AcceptAll{}, want: AcceptAll{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := normalizeAuth(tt.auth); got != tt.want {
				t.Errorf("normalizeAuth(%#v): got %#v, want %#v", tt.auth, got, tt.want)
			}
		})
	}
}
