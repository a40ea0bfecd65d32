package anlog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

const defaultFilePerm = 0644

// rotatingWriter is the teacher's common/rotatingWriter.go, ported
// verbatim in behavior: it appends to filePath until maxSize bytes
// have been written, then renames the file aside with a numeric
// suffix and starts a fresh one.
type rotatingWriter struct {
	filePath      string
	file          *os.File
	l             sync.RWMutex
	currentSuffix int32
	currentSize   uint64
	maxSize       uint64
}

// NewRotatingWriter opens (or creates) filePath for append and returns
// a WriteCloser that rotates it once it exceeds maxSize bytes.
func NewRotatingWriter(filePath string, maxSize uint64) (io.WriteCloser, error) {
	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, defaultFilePerm)
	if err != nil {
		return nil, err
	}
	return &rotatingWriter{file: file, filePath: filePath, maxSize: maxSize}, nil
}

func (w *rotatingWriter) rotate(suffix int32) error {
	w.l.RUnlock()
	defer w.l.RLock()

	w.l.Lock()
	defer w.l.Unlock()

	if atomic.LoadInt32(&w.currentSuffix) > suffix {
		return nil // already rotated by another writer
	}

	if err := w.file.Close(); err != nil {
		return err
	}

	rotated := strings.TrimSuffix(w.filePath, ".log") + fmt.Sprintf(".%d.log", w.currentSuffix)
	if err := os.Rename(w.filePath, rotated); err != nil {
		return err
	}

	atomic.AddInt32(&w.currentSuffix, 1)
	atomic.StoreUint64(&w.currentSize, 0)

	file, err := os.OpenFile(w.filePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, defaultFilePerm)
	if err != nil {
		return err
	}
	w.file = file
	return nil
}

func (w *rotatingWriter) Close() error {
	return w.file.Close()
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.l.RLock()
	defer w.l.RUnlock()

	currSuffix := atomic.LoadInt32(&w.currentSuffix)
	if atomic.AddUint64(&w.currentSize, uint64(len(p))) <= w.maxSize {
		return w.file.Write(p)
	}

	atomic.AddUint64(&w.currentSize, ^uint64(len(p)-1)) // subtract len(p)

	if err := w.rotate(currSuffix); err != nil {
		return 0, err
	}

	atomic.AddUint64(&w.currentSize, uint64(len(p)))
	return w.file.Write(p)
}
