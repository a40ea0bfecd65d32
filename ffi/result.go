package ffi

import (
	"context"
	"errors"

	"github.com/anidbgo/anidb/anerr"
)

// ResultCode is the numeric status every ABI function returns, mapping
// 1:1 onto anerr.Kind per spec §4.12: "numeric result codes map 1:1 to
// the error taxonomy." Zero always means success; there is no
// out-of-band way to signal success since C has no option type.
type ResultCode int32

const (
	ResultOK ResultCode = iota
	ResultUnknown
	ResultInvalidParameter
	ResultNotFound
	ResultPermissionDenied
	ResultIOError
	ResultOutOfMemory
	ResultCancelled
	ResultTimeout
	ResultNetwork
	ResultProtocol
	ResultVersionMismatch
	ResultCache
	ResultBusy
	// ResultInvalidHandle has no anerr.Kind counterpart: it only ever
	// arises at the FFI boundary itself (a stale or forged handle),
	// never from a call into the rest of the module.
	ResultInvalidHandle
)

// resultFromKind maps anerr.Kind to its ResultCode, kept as an
// explicit table rather than a shared numbering so ResultCode's wire
// values never silently shift if anerr.Kind's iota order changes.
func resultFromKind(k anerr.Kind) ResultCode {
	switch k {
	case anerr.Unknown:
		return ResultUnknown
	case anerr.InvalidParameter:
		return ResultInvalidParameter
	case anerr.NotFound:
		return ResultNotFound
	case anerr.PermissionDenied:
		return ResultPermissionDenied
	case anerr.IOError:
		return ResultIOError
	case anerr.OutOfMemory:
		return ResultOutOfMemory
	case anerr.Cancelled:
		return ResultCancelled
	case anerr.Timeout:
		return ResultTimeout
	case anerr.Network:
		return ResultNetwork
	case anerr.Protocol:
		return ResultProtocol
	case anerr.VersionMismatch:
		return ResultVersionMismatch
	case anerr.Cache:
		return ResultCache
	case anerr.Busy:
		return ResultBusy
	default:
		return ResultUnknown
	}
}

// FromError converts any error from this module into its ResultCode;
// nil maps to ResultOK. A handful of call paths (context cancellation
// propagated straight out of a select, unwrapped by the package that
// produced it) never get anerr.Wrap'd, so those are recognized here
// rather than collapsing to ResultUnknown.
func FromError(err error) ResultCode {
	if err == nil {
		return ResultOK
	}
	if errors.Is(err, context.Canceled) {
		return ResultCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ResultTimeout
	}
	return resultFromKind(anerr.KindOf(err))
}
