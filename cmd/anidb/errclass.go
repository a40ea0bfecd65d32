package main

import (
	"context"
	"errors"

	"github.com/anidbgo/anidb/anerr"
)

type errClass int

const (
	classNone errClass = iota
	classGeneric
	classUsage
	classIO
	classNetwork
	classCache
	classCancelled
)

// classifyErr maps an anerr.Kind, or a raw context cancellation that
// never got wrapped in one, to the coarse exit-code family spec §6
// fixes for this CLI.
func classifyErr(err error) errClass {
	if err == nil {
		return classNone
	}
	if errors.Is(err, context.Canceled) {
		return classCancelled
	}
	switch anerr.KindOf(err) {
	case anerr.InvalidParameter:
		return classUsage
	case anerr.IOError, anerr.PermissionDenied, anerr.NotFound:
		return classIO
	case anerr.Network, anerr.Timeout:
		return classNetwork
	case anerr.Cache:
		return classCache
	case anerr.Cancelled:
		return classCancelled
	default:
		return classGeneric
	}
}
