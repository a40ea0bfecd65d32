package cache

import (
	"container/list"
	"sync"
)

// lruIndex tracks recency and total size in memory, authoritative for
// eviction decisions while Backend remains authoritative for values.
// Grounded on common/LFUCache.go's pattern of a mutex-guarded ordered
// structure plus a side map from key to its position, adapted from
// frequency counting to a doubly linked recency list (container/list,
// the idiomatic Go LRU structure) since spec §4.8 specifies LRU.
type lruIndex struct {
	mu         sync.Mutex
	order      *list.List // front = most recently used
	elems      map[string]*list.Element
	bytes      map[string]int64
	totalBytes int64
}

type lruEntry struct {
	key string
}

func newLRUIndex() *lruIndex {
	return &lruIndex{
		order: list.New(),
		elems: make(map[string]*list.Element),
		bytes: make(map[string]int64),
	}
}

// touch marks key most-recently-used, inserting it if new and recording
// its size for byte-based eviction accounting.
func (l *lruIndex) touch(key string, size int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if el, ok := l.elems[key]; ok {
		l.order.MoveToFront(el)
		l.totalBytes += size - l.bytes[key]
		l.bytes[key] = size
		return
	}
	el := l.order.PushFront(lruEntry{key: key})
	l.elems[key] = el
	l.bytes[key] = size
	l.totalBytes += size
}

func (l *lruIndex) remove(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removeLocked(key)
}

func (l *lruIndex) removeLocked(key string) {
	if el, ok := l.elems[key]; ok {
		l.order.Remove(el)
		delete(l.elems, key)
		l.totalBytes -= l.bytes[key]
		delete(l.bytes, key)
	}
}

func (l *lruIndex) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order.Init()
	l.elems = make(map[string]*list.Element)
	l.bytes = make(map[string]int64)
	l.totalBytes = 0
}

// victimsFor returns, oldest-first, enough least-recently-used keys to
// bring entry count under maxEntries and total bytes under maxBytes.
// Zero limits mean "no limit on that dimension". Caller evicts them
// from the Backend, then calls remove for each.
func (l *lruIndex) victimsFor(maxEntries int, maxBytes int64) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var victims []string
	entries := l.order.Len()
	bytes := l.totalBytes
	el := l.order.Back()
	for el != nil && ((maxEntries > 0 && entries > maxEntries) || (maxBytes > 0 && bytes > maxBytes)) {
		key := el.Value.(lruEntry).key
		victims = append(victims, key)
		bytes -= l.bytes[key]
		entries--
		el = el.Prev()
	}
	return victims
}

func (l *lruIndex) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}

func (l *lruIndex) size() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalBytes
}
