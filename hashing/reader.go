package hashing

import (
	"context"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/anidbgo/anidb/anerr"
	"github.com/anidbgo/anidb/bufferpool"
)

// normalizePath applies the teacher's long-path handling (common's
// UNC/`\\?\` prefixing for Windows, see common/util.go's ToExtendedPath
// family) so callers can pass ordinary paths without worrying about the
// 260-character MAX_PATH limit.
func normalizePath(path string) string {
	if runtime.GOOS != "windows" {
		return path
	}
	if strings.HasPrefix(path, `\\?\`) || strings.HasPrefix(path, `\\.\`) {
		return path
	}
	if len(path) < 2 || path[1] != ':' {
		return path // UNC or relative; leave as-is, stdlib handles it
	}
	return `\\?\` + path
}

// StreamingReader walks a file start to finish in ChunkBytes-sized
// pieces, handing each Chunk to a consumer exactly once. It prefers a
// memory map of the whole file (common/mmf_*.go's approach) and falls
// back to buffered os.File.Read through the shared bufferpool.Pool when
// mapping fails (e.g. zero-length files, or platforms/filesystems that
// reject mmap) — spec §4.2's "mmap-or-read dual strategy".
type StreamingReader struct {
	path string
	pool *bufferpool.Pool

	f    *os.File
	size int64

	mmap []byte // non-nil if the whole file is memory-mapped
}

// Open stats and opens path for streaming. The returned reader owns the
// underlying *os.File and any mmap until Close.
func Open(path string, pool *bufferpool.Pool) (*StreamingReader, error) {
	real := normalizePath(path)
	f, err := os.Open(real)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, anerr.Wrap(err, anerr.NotFound, "open %s", path).WithPath(path)
		}
		if os.IsPermission(err) {
			return nil, anerr.Wrap(err, anerr.PermissionDenied, "open %s", path).WithPath(path)
		}
		return nil, anerr.Wrap(err, anerr.IOError, "open %s", path).WithPath(path)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, anerr.Wrap(err, anerr.IOError, "stat %s", path).WithPath(path)
	}
	if info.IsDir() {
		f.Close()
		return nil, anerr.New(anerr.InvalidParameter, "%s is a directory", path).WithPath(path)
	}

	r := &StreamingReader{path: path, pool: pool, f: f, size: info.Size()}
	if m, err := mmapFile(f.Fd(), r.size); err == nil {
		r.mmap = m
	}
	return r, nil
}

func (r *StreamingReader) Size() int64 { return r.size }

func (r *StreamingReader) Close() error {
	if r.mmap != nil {
		munmapFile(r.mmap)
		r.mmap = nil
	}
	return r.f.Close()
}

// Chunks streams the file's chunks onto the returned channel, honoring
// ctx cancellation. The chunk channel is closed after the last chunk or
// after an error is sent on the returned error channel, which is itself
// closed when the reading goroutine exits. Buffers handed out through
// bufferpool are owned by the consumer until it passes the chunk to the
// returned release func.
func (r *StreamingReader) Chunks(ctx context.Context) (<-chan Chunk, func(Chunk), <-chan error) {
	out := make(chan Chunk, 2) // depth 2: double-buffered read-ahead
	errc := make(chan error, 1)

	release := func(c Chunk) {
		if c.handle != nil {
			c.handle.Release()
		}
	}

	go func() {
		defer close(errc)
		defer close(out)

		if r.size == 0 {
			select {
			case out <- Chunk{Offset: 0, Data: nil, IsLast: true}:
			case <-ctx.Done():
			}
			return
		}

		var offset int64
		for offset < r.size {
			select {
			case <-ctx.Done():
				errc <- anerr.New(anerr.Cancelled, "hashing cancelled for %s", r.path)
				return
			default:
			}

			n := int64(ChunkBytes)
			if remain := r.size - offset; remain < n {
				n = remain
			}
			isLast := offset+n >= r.size

			var data []byte
			var handle *bufferpool.Handle
			if r.mmap != nil {
				data = r.mmap[offset : offset+n]
			} else {
				buf, err := r.pool.Acquire(uint32(n))
				if err != nil {
					errc <- err
					return
				}
				data = buf.Bytes()[:n]
				if _, err := io.ReadFull(r.f, data); err != nil {
					buf.Release()
					errc <- anerr.Wrap(err, anerr.IOError, "read %s", r.path).WithPath(r.path)
					return
				}
				handle = buf
			}

			select {
			case out <- Chunk{Offset: offset, Data: data, IsLast: isLast, handle: handle}:
			case <-ctx.Done():
				if handle != nil {
					handle.Release()
				}
				errc <- anerr.New(anerr.Cancelled, "hashing cancelled for %s", r.path)
				return
			}

			offset += n
		}
	}()

	return out, release, errc
}
