package heap

import (
	"math"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, h Heap) (keys []float64, elements []int32) {
	t.Helper()
	for !h.IsEmpty() {
		k, _, err := h.Peek()
		require.NoError(t, err)
		e, err := h.Poll()
		require.NoError(t, err)
		keys = append(keys, k)
		elements = append(elements, e)
	}
	return keys, elements
}

func TestBinHeapPollOrder(t *testing.T) {
	h := NewBinHeap(2)
	h.Insert(12, 1)
	h.Insert(3, 2)
	h.Insert(7, 3)
	h.Insert(0.5, 4)
	h.Insert(99, 5)

	assert.Equal(t, 5, h.Len())
	assert.Equal(t, 0.5, h.MinKey())

	keys, elements := drain(t, h)
	assert.Equal(t, []float64{0.5, 3, 7, 12, 99}, keys)
	assert.Equal(t, []int32{4, 2, 3, 1, 5}, elements)
}

func TestBinHeapEmpty(t *testing.T) {
	h := NewBinHeap(4)
	assert.True(t, h.IsEmpty())
	assert.True(t, math.IsInf(h.MinKey(), 1))

	_, err := h.Poll()
	assert.ErrorIs(t, err, ErrEmptyHeap)
	_, _, err = h.Peek()
	assert.ErrorIs(t, err, ErrEmptyHeap)
}

func TestBinHeapDuplicateKeys(t *testing.T) {
	h := NewBinHeap(1)
	for i := int32(0); i < 50; i++ {
		h.Insert(1, i)
	}
	h.Insert(0, 100)
	h.Insert(1, 101)

	keys, elements := drain(t, h)
	require.Len(t, keys, 52)
	assert.Equal(t, int32(100), elements[0])
	for _, k := range keys[1:] {
		assert.Equal(t, 1.0, k)
	}

	seen := make(map[int32]bool)
	for _, e := range elements {
		assert.False(t, seen[e], "element %d polled twice", e)
		seen[e] = true
	}
}

func TestBinHeapUpdate(t *testing.T) {
	h := NewBinHeap(8)
	h.Insert(10, 1)
	h.Insert(20, 2)
	h.Insert(30, 3)
	h.Insert(40, 4)

	require.True(t, h.Update(5, 3))
	require.True(t, h.Update(50, 1))
	assert.False(t, h.Update(1, 42))

	_, elements := drain(t, h)
	assert.Equal(t, []int32{3, 2, 4, 1}, elements)
}

func TestBinHeapUpdateToEqualKey(t *testing.T) {
	h := NewBinHeap(8)
	h.Insert(1, 1)
	h.Insert(2, 2)
	h.Insert(3, 3)

	require.True(t, h.Update(1, 3))
	keys, _ := drain(t, h)
	assert.Equal(t, []float64{1, 1, 2}, keys)
}

func TestBinHeapRemove(t *testing.T) {
	h := NewBinHeap(8)
	for i := int32(0); i < 10; i++ {
		h.Insert(float64(10-i), i)
	}
	k, ok := h.Remove(4)
	require.True(t, ok)
	assert.Equal(t, 6.0, k)
	_, ok = h.Remove(4)
	assert.False(t, ok)

	keys, _ := drain(t, h)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 7, 8, 9, 10}, keys)
}

func TestBinHeapEnsureCapacityKeepsEntries(t *testing.T) {
	h := NewBinHeap(2)
	h.Insert(2, 2)
	h.Insert(1, 1)
	h.EnsureCapacity(1000)
	h.Insert(0, 0)

	_, elements := drain(t, h)
	assert.Equal(t, []int32{0, 1, 2}, elements)
}

func TestBinHeapClear(t *testing.T) {
	h := NewBinHeap(4)
	h.Insert(1, 1)
	h.Insert(2, 2)
	h.Clear()
	assert.True(t, h.IsEmpty())
	h.Insert(3, 3)
	e, err := h.Poll()
	require.NoError(t, err)
	assert.Equal(t, int32(3), e)
}

func TestBucketedHeapSpillAndRefill(t *testing.T) {
	h := NewBucketedHeapWithTiers(4, 8, 16)
	for i := int32(100); i > 0; i-- {
		h.Insert(float64(i), i)
	}
	assert.Equal(t, 100, h.Len())
	assert.Equal(t, 1.0, h.MinKey())

	keys, _ := drain(t, h)
	require.Len(t, keys, 100)
	assert.True(t, sort.Float64sAreSorted(keys))
}

func TestBucketedHeapInsertBetweenTiers(t *testing.T) {
	h := NewBucketedHeapWithTiers(2, 2, 4)
	h.Insert(1, 1)
	h.Insert(2, 2)
	h.Insert(10, 10)
	h.Insert(20, 20)
	h.Insert(30, 30)
	// Fits between tiers after small already spilled.
	h.Insert(5, 5)
	h.Insert(0, 0)

	_, elements := drain(t, h)
	assert.Equal(t, []int32{0, 1, 2, 5, 10, 20, 30}, elements)
}

// assertTiersOrdered checks small <= mid <= large over all keys.
func assertTiersOrdered(t *testing.T, h *BucketedHeap) {
	t.Helper()
	maxKey := func(b *BinHeap) float64 {
		m := math.Inf(-1)
		for _, k := range b.keys[1 : b.size+1] {
			m = max(m, k)
		}
		return m
	}
	require.LessOrEqual(t, maxKey(h.small), h.mid.MinKey(), "small above mid")
	require.LessOrEqual(t, maxKey(h.small), h.large.MinKey(), "small above large")
	require.LessOrEqual(t, maxKey(h.mid), h.large.MinKey(), "mid above large")
}

func TestBucketedHeapSmallTierLargerThanMid(t *testing.T) {
	// Spilling small overflows mid part-way; 5 must follow 4 into large.
	h := NewBucketedHeapWithTiers(5, 2, 3)
	for i := int32(1); i <= 6; i++ {
		h.Insert(float64(i), i)
		assertTiersOrdered(t, h)
	}
	assert.Equal(t, []float64{1, 2}, h.small.keys[1:h.small.size+1])

	keys, elements := drain(t, h)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, keys)
	assert.Equal(t, []int32{1, 2, 3, 4, 5, 6}, elements)
}

func TestBucketedHeapEmpty(t *testing.T) {
	h := NewBucketedHeap(10)
	_, err := h.Poll()
	assert.ErrorIs(t, err, ErrEmptyHeap)
	assert.True(t, math.IsInf(h.MinKey(), 1))
}

func TestBucketedHeapDefaultTiers(t *testing.T) {
	small := NewBucketedHeap(10)
	assert.Equal(t, 6, small.smallCap)
	assert.Equal(t, 25, small.midCap)

	big := NewBucketedHeap(1600)
	assert.Equal(t, 100, big.smallCap)
	assert.Equal(t, 400, big.midCap)
}

func TestBucketedHeapUpdate(t *testing.T) {
	h := NewBucketedHeapWithTiers(2, 4, 8)
	for i := int32(0); i < 20; i++ {
		h.Insert(float64(i), i)
	}
	require.True(t, h.Update(-1, 19))
	require.True(t, h.Update(100, 0))
	assert.False(t, h.Update(3, 77))

	_, elements := drain(t, h)
	require.Len(t, elements, 20)
	assert.Equal(t, int32(19), elements[0])
	assert.Equal(t, int32(0), elements[19])
}

// Both heaps must hand out keys in the same order for any mix of
// operations.
func TestHeapsAgreeOnRandomOperations(t *testing.T) {
	tiers := [][3]int{
		{3, 6, 12},
		{5, 2, 3},
		{8, 3, 4},
		{2, 2, 2},
	}
	for _, tc := range tiers {
		for seed := uint64(1); seed <= 30; seed++ {
			agreeOnRandomOperations(t, seed, NewBucketedHeapWithTiers(tc[0], tc[1], tc[2]))
		}
	}
}

func agreeOnRandomOperations(t *testing.T, seed uint64, bucketed *BucketedHeap) {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, 7))
	bin := NewBinHeap(4)
	present := make(map[int32]bool)
	next := int32(0)

	for op := 0; op < 2000; op++ {
		switch r := rng.IntN(10); {
		case r < 5:
			key := rng.Float64() * 1000
			bin.Insert(key, next)
			bucketed.Insert(key, next)
			present[next] = true
			next++
		case r < 7 && len(present) > 0:
			target := rng.Int32N(next)
			key := rng.Float64() * 1000
			assert.Equal(t, bin.Update(key, target), bucketed.Update(key, target))
		default:
			if bin.IsEmpty() {
				require.True(t, bucketed.IsEmpty())
				continue
			}
			bk, be, err := bin.PollEntry()
			require.NoError(t, err)
			ck, ce, err := bucketed.PollEntry()
			require.NoError(t, err)
			require.Equal(t, bk, ck, "seed %d op %d", seed, op)
			require.Equal(t, be, ce, "seed %d op %d", seed, op)
			delete(present, be)
		}
		require.Equal(t, bin.Len(), bucketed.Len())
		require.Equal(t, bin.MinKey(), bucketed.MinKey())
		assertTiersOrdered(t, bucketed)
	}

	binKeys, binElements := drain(t, bin)
	bucketedKeys, bucketedElements := drain(t, bucketed)
	assert.Equal(t, binKeys, bucketedKeys)
	assert.Equal(t, binElements, bucketedElements)
}

func TestHeapsAgreeWithDuplicateKeys(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))
	bin := NewBinHeap(4)
	bucketed := NewBucketedHeapWithTiers(2, 4, 8)
	for i := int32(0); i < 500; i++ {
		key := float64(rng.IntN(5))
		bin.Insert(key, i)
		bucketed.Insert(key, i)
	}
	binKeys, _ := drain(t, bin)
	bucketedKeys, _ := drain(t, bucketed)
	assert.Equal(t, binKeys, bucketedKeys)
}
