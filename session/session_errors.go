package session

import "errors"

var (
	ProviderRejectedErr = errors.New("identity provider rejected the request")
	NonceMismatchErr    = errors.New("id_token nonce does not match login attempt")
	NotAuthCallbackErr  = errors.New("not an authorization callback URI")
)
