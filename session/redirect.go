package session

import (
	"net/url"

	"github.com/pkg/errors"
)

// authCodePath is the path component of a redirect callback URI.
const authCodePath = "authcode"

// AuthReply is the state/code pair carried by a redirect callback.
type AuthReply struct {
	State string
	Code  string
}

// ParseAuthReply parses a redirect callback URI of the form
// "<scheme>:authcode?state=...&code=...". The URI crosses the desktop
// security boundary, so anything that is not an authorization callback for
// the expected scheme is rejected with NotAuthCallbackErr; the caller
// decides whether the argument might be something else entirely.
func ParseAuthReply(rawURI, scheme string) (AuthReply, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return AuthReply{}, errors.Wrap(NotAuthCallbackErr, err.Error())
	}
	if u.Scheme != scheme {
		return AuthReply{}, errors.Wrapf(NotAuthCallbackErr, "unknown URI scheme %q", u.Scheme)
	}
	if u.Opaque != authCodePath {
		return AuthReply{}, errors.Wrapf(NotAuthCallbackErr, "unknown URI path %q", u.Opaque)
	}
	q := u.Query()
	return AuthReply{State: q.Get("state"), Code: q.Get("code")}, nil
}
