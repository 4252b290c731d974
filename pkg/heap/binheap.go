package heap

import (
	"errors"
	"math"
)

// ErrEmptyHeap is returned when polling or peeking a heap with no entries.
// Callers are expected to check IsEmpty first; seeing this error is a bug.
var ErrEmptyHeap = errors.New("heap: empty")

// Heap is a min-heap over (key, element) pairs.
type Heap interface {
	Insert(key float64, element int32)
	Peek() (key float64, element int32, err error)
	Poll() (int32, error)
	Update(key float64, element int32) bool
	// MinKey returns the smallest key, or +Inf if the heap is empty.
	MinKey() float64
	Len() int
	IsEmpty() bool
	EnsureCapacity(n int)
	Clear()
}

// BinHeap is a binary min-heap stored in two parallel 1-based arrays.
// Slot 0 holds a -Inf sentinel so sift-up needs no bounds check.
type BinHeap struct {
	keys     []float64
	elements []int32
	size     int
}

var _ Heap = (*BinHeap)(nil)

// NewBinHeap creates a heap with room for capacity entries before growing.
func NewBinHeap(capacity int) *BinHeap {
	if capacity < 1 {
		capacity = 1
	}
	h := &BinHeap{
		keys:     make([]float64, capacity+1),
		elements: make([]int32, capacity+1),
	}
	h.keys[0] = math.Inf(-1)
	return h
}

func (h *BinHeap) Len() int      { return h.size }
func (h *BinHeap) IsEmpty() bool { return h.size == 0 }

// Insert adds element with the given key. Duplicate keys and duplicate
// elements are both allowed.
func (h *BinHeap) Insert(key float64, element int32) {
	if h.size+1 >= len(h.keys) {
		h.EnsureCapacity(2 * (h.size + 1))
	}
	h.size++
	h.keys[h.size] = key
	h.elements[h.size] = element
	h.siftUp(h.size)
}

// Peek returns the minimum entry without removing it.
func (h *BinHeap) Peek() (float64, int32, error) {
	if h.size == 0 {
		return 0, 0, ErrEmptyHeap
	}
	return h.keys[1], h.elements[1], nil
}

func (h *BinHeap) MinKey() float64 {
	if h.size == 0 {
		return math.Inf(1)
	}
	return h.keys[1]
}

// Poll removes and returns the element with the smallest key.
func (h *BinHeap) Poll() (int32, error) {
	if h.size == 0 {
		return 0, ErrEmptyHeap
	}
	element := h.elements[1]
	h.removeAt(1)
	return element, nil
}

// PollEntry removes the minimum entry and returns both its key and element.
func (h *BinHeap) PollEntry() (float64, int32, error) {
	if h.size == 0 {
		return 0, 0, ErrEmptyHeap
	}
	key, element := h.keys[1], h.elements[1]
	h.removeAt(1)
	return key, element, nil
}

// Update changes the key of the first entry holding element. The entry is
// found by a linear scan. Returns false if element is not in the heap.
func (h *BinHeap) Update(key float64, element int32) bool {
	i := h.indexOf(element)
	if i == 0 {
		return false
	}
	old := h.keys[i]
	h.keys[i] = key
	if key < old {
		h.siftUp(i)
	} else if key > old {
		h.siftDown(i)
	}
	return true
}

// Remove deletes the first entry holding element and returns its key.
func (h *BinHeap) Remove(element int32) (float64, bool) {
	i := h.indexOf(element)
	if i == 0 {
		return 0, false
	}
	key := h.keys[i]
	h.removeAt(i)
	return key, true
}

// EnsureCapacity grows the backing arrays so that n entries fit.
func (h *BinHeap) EnsureCapacity(n int) {
	if n+1 <= len(h.keys) {
		return
	}
	keys := make([]float64, n+1)
	elements := make([]int32, n+1)
	copy(keys, h.keys[:h.size+1])
	copy(elements, h.elements[:h.size+1])
	h.keys = keys
	h.elements = elements
}

// Clear empties the heap but keeps its capacity.
func (h *BinHeap) Clear() {
	h.size = 0
}

func (h *BinHeap) indexOf(element int32) int {
	for i := 1; i <= h.size; i++ {
		if h.elements[i] == element {
			return i
		}
	}
	return 0
}

func (h *BinHeap) removeAt(i int) {
	last := h.size
	h.size--
	if i == last {
		return
	}
	old := h.keys[i]
	h.keys[i] = h.keys[last]
	h.elements[i] = h.elements[last]
	if h.keys[i] < old {
		h.siftUp(i)
	} else {
		h.siftDown(i)
	}
}

// siftUp moves the entry at i towards the root while its parent key is
// strictly greater, so equal keys never swap.
func (h *BinHeap) siftUp(i int) {
	key, element := h.keys[i], h.elements[i]
	for i > 1 && h.keys[i>>1] > key {
		h.keys[i] = h.keys[i>>1]
		h.elements[i] = h.elements[i>>1]
		i >>= 1
	}
	h.keys[i] = key
	h.elements[i] = element
}

// siftDown moves the entry at i towards the leaves while a child key is
// strictly smaller.
func (h *BinHeap) siftDown(i int) {
	key, element := h.keys[i], h.elements[i]
	for {
		child := i << 1
		if child > h.size {
			break
		}
		if child < h.size && h.keys[child+1] < h.keys[child] {
			child++
		}
		if h.keys[child] >= key {
			break
		}
		h.keys[i] = h.keys[child]
		h.elements[i] = h.elements[child]
		i = child
	}
	h.keys[i] = key
	h.elements[i] = element
}
