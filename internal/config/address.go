package config

import (
	"errors"
	"net/netip"
	"strconv"
	"strings"
)

var (
	ErrMissingColon   = errors.New("missing ':' in user")
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidPort    = errors.New("invalid port number")
)

// Address is a parsed "[user:password@]host[:port]" string.
type Address struct {
	Host netip.Addr

	// Port is only meaningful when HasPort is set; an explicit 0 asks for
	// an ephemeral port.
	Port    uint16
	HasPort bool

	Username       string
	Password       string
	HasCredentials bool
}

// ParseAddress parses an address string. The credentials are split at the
// first '@' and then at the first ':'; the host is split from the port at
// its first ':', so IPv6 hosts cannot carry a port.
func ParseAddress(s string) (Address, error) {
	var addr Address

	host := s
	if user, rest, ok := strings.Cut(s, "@"); ok {
		username, password, ok := strings.Cut(user, ":")
		if !ok {
			return Address{}, ErrMissingColon
		}
		addr.Username = username
		addr.Password = password
		addr.HasCredentials = true
		host = rest
	}

	if h, p, ok := strings.Cut(host, ":"); ok {
		port, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return Address{}, ErrInvalidPort
		}
		addr.Port = uint16(port)
		addr.HasPort = true
		host = h
	}

	ip, err := netip.ParseAddr(host)
	if err != nil {
		return Address{}, ErrInvalidAddress
	}
	addr.Host = ip

	return addr, nil
}

// ListenAddr returns the host and port in dialable form, using defaultPort
// when the address has none.
func (a Address) ListenAddr(defaultPort uint16) string {
	port := defaultPort
	if a.HasPort {
		port = a.Port
	}
	return netip.AddrPortFrom(a.Host, port).String()
}
