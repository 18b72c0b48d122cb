package util

import (
	"errors"
	"io"
	"net"
)

// IsNetworkError checks whether the given error came from the network layer, as opposed to e.g.
// an upstream rejection carried over a healthy connection
func IsNetworkError(err error) bool {
	if IsNetworkClosed(err) || IsNetworkTimeout(err) {
		return true
	}
	var operr *net.OpError
	return errors.As(err, &operr)
}

// IsNetworkClosed checks whether the given error tells the connection has been closed
func IsNetworkClosed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}

// IsNetworkTimeout checks whether the given error is a timeout from the net layer
func IsNetworkTimeout(err error) bool {
	var timeout net.Error
	return errors.As(err, &timeout) && timeout.Timeout()
}
