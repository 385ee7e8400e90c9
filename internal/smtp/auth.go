// Package smtp implements a fixed-sequence SMTP endpoint that captures a
// single two-part message per session.
package smtp

import (
	"encoding/base64"

	"github.com/shineum/smtp-test-server/internal/config"
)

// Auth is the authentication policy of a server. It is one of Login,
// AcceptAnonOnly or AcceptAll; pointers to them are accepted and treated as
// the pointed-to value.
type Auth interface {
	isAuth()
}

// Login requires clients to authenticate with exactly these credentials.
type Login struct {
	Username string
	Password string
}

// AcceptAnonOnly rejects every authentication attempt and accepts
// unauthenticated clients.
type AcceptAnonOnly struct{}

// AcceptAll accepts any client, including ones that log in with arbitrary
// credentials.
type AcceptAll struct{}

func (Login) isAuth()          {}
func (AcceptAnonOnly) isAuth() {}
func (AcceptAll) isAuth()      {}

// normalizeAuth resolves auth to one of the value variants. Pointers are
// dereferenced and nil, including a nil pointer, becomes AcceptAnonOnly.
func normalizeAuth(auth Auth) Auth {
	switch a := auth.(type) {
	case Login, AcceptAnonOnly, AcceptAll:
		return a
	case *Login:
		if a != nil {
			return *a
		}
	case *AcceptAll:
		if a != nil {
			return *a
		}
	}
	return AcceptAnonOnly{}
}

// plainCommand returns the exact AUTH PLAIN line a client sends for these
// credentials.
func (l Login) plainCommand() string {
	data := make([]byte, 0, 2+len(l.Username)+len(l.Password))
	data = append(data, 0)
	data = append(data, l.Username...)
	data = append(data, 0)
	data = append(data, l.Password...)
	return "AUTH PLAIN " + base64.StdEncoding.EncodeToString(data) + "\r\n"
}

// AuthFor derives the policy for a parsed address. Credentials in the address
// mandate Login; without them strict selects AcceptAnonOnly and non-strict
// AcceptAll.
func AuthFor(addr config.Address, strict bool) Auth {
	switch {
	case addr.HasCredentials:
		return Login{Username: addr.Username, Password: addr.Password}
	case strict:
		return AcceptAnonOnly{}
	default:
		return AcceptAll{}
	}
}
