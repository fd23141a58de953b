package graphdb

import (
	"errors"
	"io"
	"net"
	"strings"
)

// Per-query failures (bad query, server-side error, timeout) are recoverable:
// the run counts them and moves on. Losing the capability itself is not.

var unrecoverableFragments = []string{
	"pool is closed",
	"connection refused",
	"connection reset",
	"broken pipe",
	"NOAUTH",
	"WRONGPASS",
	"ConnectivityError",
	"unable to retrieve routing table",
}

// IsUnrecoverable reports whether err means the execute capability is gone
// and the run cannot usefully continue.
func IsUnrecoverable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && !netErr.Timeout() {
		return true
	}
	msg := err.Error()
	for _, frag := range unrecoverableFragments {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}

func isUnknownGraph(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "empty key") || strings.Contains(msg, "unknown graph")
}
