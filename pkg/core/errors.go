package core

import "errors"

// Typed results for everything a handler is expected to branch on.
// Hard faults stay as ordinary wrapped errors.
var (
	// ErrUnauthenticated means the request carried no valid, unexpired session token.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidCredentials is the single login failure. It does not say
	// which of username or password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrCapacityExceeded: a configured limit (concurrent sessions) was hit.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrUpstreamUnavailable: the external weather provider failed.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrCityUnknown: the provider has no data for the requested city.
	ErrCityUnknown = errors.New("unknown city")

	// ErrAcquireTimeout: no pooled connection freed up before the deadline.
	ErrAcquireTimeout = errors.New("connection acquire timeout")

	// ErrPoolClosed: the pool is shutting down.
	ErrPoolClosed = errors.New("pool closed")
)
