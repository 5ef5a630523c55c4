package common

// AuthorizationHeaderName carries the owner bearer token on REST calls.
const AuthorizationHeaderName = "Authorization"

// RequestIDHeaderName is echoed on every REST response.
const RequestIDHeaderName = "X-Request-ID"

// ForwardedForHeaderName is consulted when recording the origin address.
const ForwardedForHeaderName = "X-Forwarded-For"

// TokenBytes is the number of random bytes behind an invitation token (256 bits).
const TokenBytes = 32
