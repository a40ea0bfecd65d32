package bufferpool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcquireRoundsUpToClass(t *testing.T) {
	p := New(Config{Limit: DefaultLimit})

	h, err := p.Acquire(100)
	require.NoError(t, err)
	require.Len(t, h.Bytes(), 100)
	require.Equal(t, Class1KiB, h.class)
	h.Release()
}

func TestAcquireRejectsOversizeRequest(t *testing.T) {
	p := New(Config{Limit: DefaultLimit})
	_, err := p.Acquire(uint32(Class9_5MiB) + 1)
	require.Error(t, err)
}

func TestAcquireFailsAtBudget(t *testing.T) {
	p := New(Config{Limit: int64(Class1MiB)})

	h1, err := p.Acquire(uint32(Class1MiB))
	require.NoError(t, err)

	_, err = p.Acquire(1)
	require.Error(t, err)

	h1.Release()

	h2, err := p.Acquire(uint32(Class1MiB))
	require.NoError(t, err)
	h2.Release()
}

func TestReleaseReturnsBufferToFreeList(t *testing.T) {
	p := New(Config{Limit: DefaultLimit})

	h, err := p.Acquire(4096)
	require.NoError(t, err)
	h.Release()

	cp := p.classPools[Class4KiB]
	select {
	case buf := <-cp.free:
		require.Equal(t, 0, len(buf))
		require.Equal(t, int(Class4KiB), cap(buf))
	default:
		t.Fatal("expected a free buffer after Release")
	}
}

type recordingObserver struct {
	seen []Pressure
}

func (r *recordingObserver) OnPressure(p Pressure) {
	r.seen = append(r.seen, p)
}

func TestPressureTransitionsNotifyObservers(t *testing.T) {
	p := New(Config{Limit: int64(Class1MiB) * 10})
	obs := &recordingObserver{}
	p.Subscribe(obs)

	// Push used past 75% of the limit (strict/high threshold) by
	// acquiring several 1 MiB classes.
	var handles []*Handle
	for i := 0; i < 8; i++ {
		h, err := p.Acquire(uint32(Class1MiB))
		require.NoError(t, err)
		handles = append(handles, h)
	}

	require.Contains(t, obs.seen, High)

	for _, h := range handles {
		h.Release()
	}
}

func TestCriticalPressureDropsFreeLists(t *testing.T) {
	p := New(Config{Limit: int64(Class1MiB)})

	h, err := p.Acquire(uint32(Class1MiB))
	require.NoError(t, err)
	require.Equal(t, Critical, p.currentPressure())

	h.Release()
	// Pressure drops back to Low once released, but while Critical was
	// active the free list must not have retained the buffer that
	// triggered it.
	require.Zero(t, len(p.classPools[Class1MiB].free))
	h2, err := p.Acquire(uint32(Class1MiB))
	require.NoError(t, err)
	h2.Release()
}
