package billing

import "errors"

var (
	// ErrNoSubscriber is returned by a SubscriberResolver for anonymous requests.
	ErrNoSubscriber = errors.New("billing: request has no subscriber")
	ErrNoCustomer   = errors.New("billing: customer is not resolved")
	ErrLogoutFailed = errors.New("billing: logout failed")
)
