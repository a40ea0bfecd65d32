package ffi

import (
	"context"

	"github.com/anidbgo/anidb/internal/anlog"
	"github.com/anidbgo/anidb/internal/metrics"
	"github.com/anidbgo/anidb/protocol"
)

// ClientConfig mirrors protocol.Config in plain value types so it can
// cross the boundary without exposing anlog.Logger or metrics.Registry
// to a C caller.
type ClientConfig struct {
	ServerAddr string
	ClientName string
	ClientVer  int
	APIKey     string
	NATMode    bool
}

// ClientNew dials a protocol.Client and registers it, returning the
// handle a caller threads through every subsequent Client* call.
func ClientNew(cfg ClientConfig) (Handle, ResultCode) {
	c, err := protocol.Dial(protocol.Config{
		ServerAddr: cfg.ServerAddr,
		ClientName: cfg.ClientName,
		ClientVer:  cfg.ClientVer,
		APIKey:     cfg.APIKey,
		NATMode:    cfg.NATMode,
		Logger:     anlog.Nop,
		Metrics:    metrics.Noop(),
	})
	if err != nil {
		return 0, FromError(err)
	}
	return clients.register(c), ResultOK
}

// ClientFree closes the underlying socket and releases the handle.
// Calling it twice, or on a handle never issued by ClientNew, is a
// no-op that reports ResultInvalidHandle rather than panicking: a
// foreign caller must never be able to crash the library by
// double-freeing.
func ClientFree(h Handle) ResultCode {
	obj, ok := clients.lookup(h)
	if !ok {
		return ResultInvalidHandle
	}
	clients.free(h)
	c := obj.(*protocol.Client)
	if err := c.Close(); err != nil {
		return FromError(err)
	}
	return ResultOK
}

func lookupClient(h Handle) (*protocol.Client, ResultCode) {
	obj, ok := clients.lookup(h)
	if !ok {
		return nil, ResultInvalidHandle
	}
	return obj.(*protocol.Client), ResultOK
}

// ClientAuth runs AUTH on the session behind h.
func ClientAuth(ctx context.Context, h Handle, username, password string) ResultCode {
	c, rc := lookupClient(h)
	if rc != ResultOK {
		return rc
	}
	if err := c.Auth(ctx, username, password); err != nil {
		return FromError(err)
	}
	return ResultOK
}

// CommandResult is the ABI-safe mirror of *protocol.Response.
type CommandResult struct {
	Code      uint16
	Text      string
	DataLines [][]string
}

// ClientCommand sends an arbitrary AniDB command through the session
// behind h, blocking until a response, a retry exhaustion, or ctx
// cancellation.
func ClientCommand(ctx context.Context, h Handle, command string, params map[string]string) (CommandResult, ResultCode) {
	c, rc := lookupClient(h)
	if rc != ResultOK {
		return CommandResult{}, rc
	}
	resp, err := c.Command(ctx, command, params)
	if err != nil {
		return CommandResult{}, FromError(err)
	}
	return CommandResult{Code: resp.Code, Text: resp.Text, DataLines: resp.DataLines}, ResultOK
}

// ClientState reports the session's current lifecycle state as a
// string, since protocol.SessionState itself is not part of the ABI
// surface.
func ClientState(h Handle) (string, ResultCode) {
	c, rc := lookupClient(h)
	if rc != ResultOK {
		return "", rc
	}
	return c.State().String(), ResultOK
}
