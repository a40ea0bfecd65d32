package hashing

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anidbgo/anidb/bufferpool"
	"github.com/anidbgo/anidb/progress"
)

// FileHashes is the result of hashing one file with a chosen set of
// algorithms (spec §4.4).
type FileHashes struct {
	Path    string
	Size    int64
	Elapsed time.Duration
	Digests map[Algorithm]string
}

// Pipeline drives a StreamingReader and fans each chunk out to one
// State per requested Algorithm, generalizing the teacher's use of
// golang.org/x/sync/errgroup in ste's parallel chunk dispatch (this
// module reuses the same dependency, not the same transfer logic) to
// run independent algorithms concurrently while keeping chunk delivery
// to any single algorithm strictly sequential, as State requires.
type Pipeline struct {
	pool *bufferpool.Pool
}

func NewPipeline(pool *bufferpool.Pool) *Pipeline {
	return &Pipeline{pool: pool}
}

// HashFile reads path once and computes a digest per algo in algos,
// reporting progress to sink (pass progress.Nop-backed sink to disable).
func (p *Pipeline) HashFile(ctx context.Context, path string, algos []Algorithm, sink *progress.Sink) (*FileHashes, error) {
	reader, err := Open(path, p.pool)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	start := time.Now()
	size := reader.Size()
	if sink != nil {
		sink.Start(size)
	}

	states := make(map[Algorithm]State, len(algos))
	for _, a := range algos {
		states[a] = NewState(a)
	}

	chunks, release, errc := reader.Chunks(ctx)

	var bytesDone int64
	for chunk := range chunks {
		if err := feedChunk(ctx, chunk, states); err != nil {
			release(chunk)
			drain(chunks, release)
			reportErr(sink, err)
			return nil, err
		}
		bytesDone += int64(len(chunk.Data))
		if sink != nil {
			sink.Bytes(bytesDone)
		}
		release(chunk)
	}

	if err := <-errc; err != nil {
		reportErr(sink, err)
		return nil, err
	}

	digests := make(map[Algorithm]string, len(algos))
	for _, a := range algos {
		d := states[a].Finalize()
		digests[a] = d
		if sink != nil {
			sink.AlgorithmDone(a.String(), d)
		}
	}

	elapsed := time.Since(start)
	if sink != nil {
		sink.Done(elapsed)
	}

	return &FileHashes{Path: path, Size: size, Elapsed: elapsed, Digests: digests}, nil
}

// feedChunk updates every algorithm's State with chunk.Data concurrently;
// each State only ever sees one Update call at a time (from this
// goroutine set), satisfying State's single-writer contract.
func feedChunk(ctx context.Context, chunk Chunk, states map[Algorithm]State) error {
	if len(chunk.Data) == 0 && !chunk.IsLast {
		return nil
	}
	g, _ := errgroup.WithContext(ctx)
	for _, st := range states {
		st := st
		g.Go(func() error {
			st.Update(chunk.Data)
			return nil
		})
	}
	return g.Wait()
}

func drain(chunks <-chan Chunk, release func(Chunk)) {
	for c := range chunks {
		release(c)
	}
}

func reportErr(sink *progress.Sink, err error) {
	if sink != nil {
		sink.Error(err)
	}
}
