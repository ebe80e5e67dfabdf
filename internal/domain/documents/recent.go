package documents

import (
	"container/heap"
	"io/fs"
)

type recentEntry struct {
	path string
	info fs.FileInfo
}

// recentHeap is a min-heap on modification time so the oldest kept entry is
// always at index 0.
type recentHeap []recentEntry

func (h recentHeap) Len() int { return len(h) }

func (h recentHeap) Less(i, j int) bool {
	ti, tj := h[i].info.ModTime(), h[j].info.ModTime()
	if ti.Equal(tj) {
		return h[i].path > h[j].path
	}
	return ti.Before(tj)
}

func (h recentHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *recentHeap) Push(x interface{}) { *h = append(*h, x.(recentEntry)) }

func (h *recentHeap) Pop() interface{} {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = recentEntry{}
	*h = old[:n-1]
	return entry
}

// recentSet keeps the limit most recently modified entries offered to it.
type recentSet struct {
	limit int
	h     recentHeap
}

func newRecentSet(limit int) *recentSet {
	return &recentSet{limit: limit, h: make(recentHeap, 0, limit)}
}

func (r *recentSet) len() int { return r.h.Len() }

func (r *recentSet) offer(path string, info fs.FileInfo) {
	entry := recentEntry{path: path, info: info}
	if r.h.Len() < r.limit {
		heap.Push(&r.h, entry)
		return
	}
	if r.limit == 0 {
		return
	}
	oldest := recentHeap{r.h[0], entry}
	if oldest.Less(0, 1) {
		r.h[0] = entry
		heap.Fix(&r.h, 0)
	}
}

// newestFirst drains the set, most recent entry first.
func (r *recentSet) newestFirst() []recentEntry {
	out := make([]recentEntry, r.h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&r.h).(recentEntry)
	}
	return out
}
