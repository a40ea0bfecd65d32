package ffi

import (
	"context"
	"time"

	"github.com/anidbgo/anidb/bufferpool"
	"github.com/anidbgo/anidb/hashing"
	"github.com/anidbgo/anidb/progress"
)

// algorithmByName reverses hashing.Algorithm.String() for the small,
// fixed set of algorithm names crossing the boundary as strings.
func algorithmByName(name string) (hashing.Algorithm, bool) {
	for _, a := range []hashing.Algorithm{
		hashing.EAlgorithm.ED2KRed(),
		hashing.EAlgorithm.ED2KBlue(),
		hashing.EAlgorithm.CRC32(),
		hashing.EAlgorithm.MD5(),
		hashing.EAlgorithm.SHA1(),
		hashing.EAlgorithm.TTH(),
	} {
		if a.String() == name {
			return a, true
		}
	}
	return 0, false
}

// Operation is a registered hashing.Pipeline bound to one bufferpool.Pool,
// the handle-bearing counterpart to spec §4.12's "Operation". A single
// Operation can run HashFile any number of times; it holds no per-file
// state between calls.
type operationState struct {
	pipeline *hashing.Pipeline
}

// OperationConfig sizes the bufferpool.Pool backing the operation.
type OperationConfig struct {
	MaxTotalBytes int64
}

// OperationNew allocates a Pipeline and registers it.
func OperationNew(cfg OperationConfig) Handle {
	pool := bufferpool.New(bufferpool.Config{Limit: cfg.MaxTotalBytes})
	return operations.register(&operationState{pipeline: hashing.NewPipeline(pool)})
}

// OperationFree releases the handle; the underlying pool is reclaimed
// by the garbage collector once the last in-flight HashFile call
// returns, since nothing else retains a reference after this call.
func OperationFree(h Handle) ResultCode {
	if !operations.free(h) {
		return ResultInvalidHandle
	}
	return ResultOK
}

func lookupOperation(h Handle) (*operationState, ResultCode) {
	obj, ok := operations.lookup(h)
	if !ok {
		return nil, ResultInvalidHandle
	}
	return obj.(*operationState), ResultOK
}

// HashDigest pairs one requested algorithm's name with its hex digest,
// the ABI-safe mirror of one entry in hashing.FileHashes.Digests.
type HashDigest struct {
	Algorithm string
	Hex       string
}

// HashResult is the ABI-safe mirror of *hashing.FileHashes.
type HashResult struct {
	Path    string
	Size    int64
	Digests []HashDigest
}

// callbackProvider adapts a single re-entrant Go callback func into the
// progress.Provider spec §4.11 describes, the shape a C caller's single
// function pointer plus a "which event" tag would take. Calls arrive
// synchronously on the pipeline's goroutine, so the callback itself
// must not block or call back into this package with the same handle.
type callbackProvider struct {
	onEvent func(event string, path string, detail string)
}

func (c *callbackProvider) OnFileStart(path string, size int64) {
	c.onEvent("file_start", path, "")
}
func (c *callbackProvider) OnBytes(path string, bytesDone int64) {
	c.onEvent("bytes", path, "")
}
func (c *callbackProvider) OnAlgorithmDone(path, algo, digest string) {
	c.onEvent("algorithm_done", path, algo+"="+digest)
}
func (c *callbackProvider) OnFileDone(path string, elapsed time.Duration) {
	c.onEvent("file_done", path, elapsed.String())
}
func (c *callbackProvider) OnError(path string, err error) {
	c.onEvent("error", path, err.Error())
}

// OperationHashFile runs the pipeline behind h over path for the named
// algorithms. onEvent, if non-nil, receives progress callbacks; pass
// nil to run silently.
func OperationHashFile(ctx context.Context, h Handle, path string, algoNames []string, onEvent func(event, path, detail string)) (HashResult, ResultCode) {
	op, rc := lookupOperation(h)
	if rc != ResultOK {
		return HashResult{}, rc
	}
	algos := make([]hashing.Algorithm, 0, len(algoNames))
	for _, name := range algoNames {
		a, ok := algorithmByName(name)
		if !ok {
			return HashResult{}, ResultInvalidParameter
		}
		algos = append(algos, a)
	}

	var sink *progress.Sink
	if onEvent != nil {
		sink = progress.NewSink(&callbackProvider{onEvent: onEvent}, path)
	}

	fh, err := op.pipeline.HashFile(ctx, path, algos, sink)
	if err != nil {
		return HashResult{}, FromError(err)
	}

	digests := make([]HashDigest, 0, len(fh.Digests))
	for algo, hex := range fh.Digests {
		digests = append(digests, HashDigest{Algorithm: algo.String(), Hex: hex})
	}
	return HashResult{Path: fh.Path, Size: fh.Size, Digests: digests}, ResultOK
}
