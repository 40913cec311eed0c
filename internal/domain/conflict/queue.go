package conflict

import (
	"container/heap"
	"math"

	"github.com/felixgeelhaar/slicecore/internal/domain/extrusion"
	"github.com/felixgeelhaar/slicecore/internal/domain/geometry"
)

// heightEpsilon groups bucket cursors that print at the same height.
const heightEpsilon = 1e-4

// LineWithID is a segment tagged with the participant and instance it belongs to.
type LineWithID struct {
	Line     geometry.Line
	Object   int
	Instance int
	Role     extrusion.Role
}

// bucket walks one participant's layers bottom-up. Its cursor is the
// accumulated height of the layers already passed.
type bucket struct {
	piles   [][]extrusion.Path
	id      int
	offsets []geometry.Point
	height  float64
	pile    int
}

func (b *bucket) valid() bool { return b.pile < len(b.piles) }

func (b *bucket) raise() {
	if !b.valid() {
		return
	}
	if p := b.piles[b.pile]; len(p) > 0 {
		b.height += p[0].Height
	}
	b.pile++
}

func (b *bucket) lines() []LineWithID {
	var out []LineWithID
	for _, path := range b.piles[b.pile] {
		for inst, off := range b.offsets {
			for _, l := range path.Polyline.Lines() {
				out = append(out, LineWithID{Line: l.Translate(off), Object: b.id, Instance: inst, Role: path.Kind})
			}
		}
	}
	return out
}

// bucketHeap is a min-heap on bucket cursors.
type bucketHeap []*bucket

func (h bucketHeap) Len() int           { return len(h) }
func (h bucketHeap) Less(i, j int) bool { return h[i].height < h[j].height }
func (h bucketHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *bucketHeap) Push(x any)        { *h = append(*h, x.(*bucket)) }
func (h *bucketHeap) Pop() any {
	old := *h
	n := len(old)
	b := old[n-1]
	*h = old[:n-1]
	return b
}

// bucketQueue merges the layer stacks of all participants into height slices.
type bucketQueue struct {
	buckets []*bucket
	pq      bucketHeap
}

func (q *bucketQueue) add(piles [][]extrusion.Path, id int, offsets []geometry.Point) {
	q.buckets = append(q.buckets, &bucket{piles: piles, id: id, offsets: offsets})
}

func (q *bucketQueue) build() {
	q.pq = q.pq[:0]
	for _, b := range q.buckets {
		if b.valid() {
			q.pq = append(q.pq, b)
		}
	}
	heap.Init(&q.pq)
}

func (q *bucketQueue) valid() bool { return q.pq.Len() > 0 }

// currentLines returns the lines of every bucket still holding layers.
func (q *bucketQueue) currentLines() []LineWithID {
	var out []LineWithID
	for _, b := range q.buckets {
		if b.valid() {
			out = append(out, b.lines()...)
		}
	}
	return out
}

// removeLowest advances every bucket at the lowest cursor and returns that height.
func (q *bucketQueue) removeLowest() float64 {
	lowest := heap.Pop(&q.pq).(*bucket)
	h := lowest.height
	group := []*bucket{lowest}
	for q.pq.Len() > 0 && math.Abs(q.pq[0].height-h) < heightEpsilon {
		group = append(group, heap.Pop(&q.pq).(*bucket))
	}
	for _, b := range group {
		b.raise()
		if b.valid() {
			heap.Push(&q.pq, b)
		}
	}
	return h
}
