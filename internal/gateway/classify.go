package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
)

func classifyStatus(code int) Kind {
	switch {
	case code == http.StatusTooManyRequests:
		return RateLimited
	case code == http.StatusUnauthorized:
		return AuthExpired
	case code == http.StatusRequestTimeout, code == http.StatusBadGateway,
		code == http.StatusServiceUnavailable, code == http.StatusGatewayTimeout:
		return TransientNetworkError
	default:
		return UnknownProviderError
	}
}

// classifyTransport maps errors raised before a response was read.
func classifyTransport(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return TransientNetworkError
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return TransientNetworkError
	}
	return UnknownProviderError
}
