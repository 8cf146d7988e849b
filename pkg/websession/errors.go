package websession

import "errors"

var (
	ErrNoSecret       = errors.New("websession.no_secret")
	ErrSecretTooShort = errors.New("websession.secret_too_short")
	ErrSaveFailed     = errors.New("websession.save_failed")
)
