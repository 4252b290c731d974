package heap

import "math"

// BucketedHeap splits its entries over three binary heaps. Every key in
// small is <= every key in mid, and every key in mid is <= every key in
// large. Most Dijkstra traffic happens near the minimum, so small stays
// tiny and cheap to sift.
type BucketedHeap struct {
	small, mid, large *BinHeap
	smallCap, midCap  int
}

var _ Heap = (*BucketedHeap)(nil)

// NewBucketedHeap creates a heap sized for roughly capacity entries.
func NewBucketedHeap(capacity int) *BucketedHeap {
	smallCap, midCap, largeCap := 6, 25, 100
	if capacity >= 100 {
		smallCap, midCap, largeCap = capacity/16, capacity/4, capacity
	}
	return NewBucketedHeapWithTiers(smallCap, midCap, largeCap)
}

// NewBucketedHeapWithTiers sets the tier capacities explicitly. The large
// tier grows on demand; small and mid spill their upper half when full.
func NewBucketedHeapWithTiers(smallCap, midCap, largeCap int) *BucketedHeap {
	if smallCap < 2 {
		smallCap = 2
	}
	if midCap < 2 {
		midCap = 2
	}
	return &BucketedHeap{
		small:    NewBinHeap(smallCap),
		mid:      NewBinHeap(midCap),
		large:    NewBinHeap(largeCap),
		smallCap: smallCap,
		midCap:   midCap,
	}
}

func (h *BucketedHeap) Len() int      { return h.small.Len() + h.mid.Len() + h.large.Len() }
func (h *BucketedHeap) IsEmpty() bool { return h.Len() == 0 }

// midMin and largeMin are the lower bounds of the upper tiers.
func (h *BucketedHeap) midMin() float64   { return math.Min(h.mid.MinKey(), h.large.MinKey()) }
func (h *BucketedHeap) largeMin() float64 { return h.large.MinKey() }

func (h *BucketedHeap) Insert(key float64, element int32) {
	switch {
	case key < h.midMin():
		if h.small.Len() >= h.smallCap {
			h.spill(h.small, h.smallCap, h.pushMid)
			h.Insert(key, element)
			return
		}
		h.small.Insert(key, element)
	case key < h.largeMin():
		if h.mid.Len() >= h.midCap {
			h.spill(h.mid, h.midCap, h.large.Insert)
			h.Insert(key, element)
			return
		}
		h.mid.Insert(key, element)
	default:
		h.large.Insert(key, element)
	}
}

// pushMid takes entries spilled from small, in ascending key order. Spilling
// mid lowers largeMin, so later entries of the same spill may belong in
// large.
func (h *BucketedHeap) pushMid(key float64, element int32) {
	for key < h.largeMin() {
		if h.mid.Len() < h.midCap {
			h.mid.Insert(key, element)
			return
		}
		h.spill(h.mid, h.midCap, h.large.Insert)
	}
	h.large.Insert(key, element)
}

// spill keeps the lower half of a full tier and hands the rest upwards.
// Entries come out of the tier in key order, so the ordering between tiers
// is preserved.
func (h *BucketedHeap) spill(tier *BinHeap, capacity int, push func(float64, int32)) {
	keep := capacity / 2
	n := tier.Len()
	keys := make([]float64, 0, n)
	elements := make([]int32, 0, n)
	for !tier.IsEmpty() {
		k, e, _ := tier.PollEntry()
		keys = append(keys, k)
		elements = append(elements, e)
	}
	for i := 0; i < keep; i++ {
		tier.Insert(keys[i], elements[i])
	}
	for i := keep; i < n; i++ {
		push(keys[i], elements[i])
	}
}

// refill moves up to n of the lowest entries from src into dst.
func refill(dst, src *BinHeap, n int) {
	for i := 0; i < n && !src.IsEmpty(); i++ {
		k, e, _ := src.PollEntry()
		dst.Insert(k, e)
	}
}

func (h *BucketedHeap) ensureSmall() {
	if !h.small.IsEmpty() {
		return
	}
	if h.mid.IsEmpty() {
		refill(h.mid, h.large, h.midCap)
	}
	refill(h.small, h.mid, h.smallCap)
}

func (h *BucketedHeap) Peek() (float64, int32, error) {
	switch {
	case !h.small.IsEmpty():
		return h.small.Peek()
	case !h.mid.IsEmpty():
		return h.mid.Peek()
	default:
		return h.large.Peek()
	}
}

func (h *BucketedHeap) MinKey() float64 {
	k, _, err := h.Peek()
	if err != nil {
		return math.Inf(1)
	}
	return k
}

func (h *BucketedHeap) Poll() (int32, error) {
	h.ensureSmall()
	return h.small.Poll()
}

// PollEntry removes the minimum entry and returns both its key and element.
func (h *BucketedHeap) PollEntry() (float64, int32, error) {
	h.ensureSmall()
	return h.small.PollEntry()
}

// Update removes element from whichever tier holds it and reinserts it with
// the new key.
func (h *BucketedHeap) Update(key float64, element int32) bool {
	for _, tier := range []*BinHeap{h.small, h.mid, h.large} {
		if _, ok := tier.Remove(element); ok {
			h.Insert(key, element)
			return true
		}
	}
	return false
}

func (h *BucketedHeap) EnsureCapacity(n int) {
	h.large.EnsureCapacity(n)
}

func (h *BucketedHeap) Clear() {
	h.small.Clear()
	h.mid.Clear()
	h.large.Clear()
}
