// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package anyness

import (
	"math"
	"math/bits"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ravensilver/anyness/internal"
	"github.com/ravensilver/anyness/internal/membuf"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"
)

// backendTier is a power-of-two progression of buffer-size tiers, so that
// a pool's backend region request maps to exactly one cache bucket, with
// every bucket serving requests up to its own size and no smaller bucket
// ever starved by a larger one's traffic.
const (
	backendTierMin   = 1 << 16 // 64 KiB, smallest pool backend the cache bothers with
	backendTierMax   = 1 << 30 // 1 GiB, largest tier; bigger requests bypass the cache
	backendTierCount = 15      // bits.Len(backendTierMax) - bits.Len(backendTierMin) + 1
)

// backendTierOf returns the tier index for size, or -1 if size falls outside
// [backendTierMin, backendTierMax] and should be minted directly instead of
// going through the cache.
func backendTierOf(size uintptr) int {
	if size < backendTierMin || size > backendTierMax {
		return -1
	}
	rounded := membuf.NextPow2(size)
	tier := bits.Len(uint(rounded)) - bits.Len(uint(backendTierMin))
	if tier < 0 || tier >= backendTierCount {
		return -1
	}
	return tier
}

// noCopy is embedded in types that must never be copied after first use,
// same trick the race detector's vet check keys off of.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

const (
	boundedPoolEntryEmpty    = 1 << 62
	boundedPoolEntryTurnMask = boundedPoolEntryEmpty>>32 - 1
)

// BoundedPool is a bounded, lock-free MPMC pool of indirectly-addressed
// items. It is the ring allocator used by the process-wide backend region
// cache below; capacity is fixed by NewBoundedPool and never grows, trading
// elasticity for the wait-free progress guarantee the paper it implements
// provides:
//
//	https://nikitakoval.org/publications/ppopp20-queues.pdf
type BoundedPool[T any] struct {
	_ noCopy

	items      []T
	capacity   uint32
	mask       uint32
	entries    []atomic.Uint64
	remapM     uint32
	remapN     uint32
	remapMask  uint32
	head, tail atomic.Uint32

	nonblocking bool
}

// NewBoundedPool creates an empty BoundedPool of the given capacity, rounded
// up to the next power of two. Capacity must be between 1 and math.MaxUint32.
func NewBoundedPool[T any](capacity int) *BoundedPool[T] {
	if capacity < 1 || capacity > math.MaxUint32 {
		panic("capacity must be between 1 and MaxUint32")
	}
	capacity--
	capacity |= capacity >> 1
	capacity |= capacity >> 2
	capacity |= capacity >> 4
	capacity |= capacity >> 8
	capacity |= capacity >> 16
	capacity++

	remapM := min(internal.CacheLineSize/unsafe.Sizeof(atomic.Uint64{}), uintptr(capacity))
	remapN := max(1, uintptr(capacity)/remapM)

	return &BoundedPool[T]{
		items:     make([]T, 0, capacity),
		capacity:  uint32(capacity),
		mask:      uint32(capacity - 1),
		remapM:    uint32(remapM),
		remapN:    uint32(remapN),
		remapMask: uint32(remapN - 1),
	}
}

// Fill populates every slot with newFunc's result and marks the pool full,
// ready for Get to start handing slots out.
func (pool *BoundedPool[T]) Fill(newFunc func() T) {
	for range pool.capacity {
		pool.items = append(pool.items, newFunc())
	}
	pool.entries = make([]atomic.Uint64, pool.capacity)
	for i := range pool.capacity {
		pool.entries[i].Store(uint64(i))
	}
	pool.tail.Store(pool.capacity)
}

// SetNonblock toggles whether Get/Put return iox.ErrWouldBlock immediately
// instead of spinning/backing off when the pool is empty/full.
func (pool *BoundedPool[T]) SetNonblock(nonblocking bool) {
	pool.nonblocking = nonblocking
}

// Value returns the item at the given indirect index.
func (pool *BoundedPool[T]) Value(indirect int) T {
	if len(pool.items) != int(pool.capacity) {
		panic("must Fill the pool before using it")
	}
	if indirect < 0 || indirect >= int(pool.capacity) {
		panic("invalid bounded pool indirect")
	}
	return pool.items[indirect]
}

// SetValue overwrites the item at the given indirect index.
func (pool *BoundedPool[T]) SetValue(indirect int, value T) {
	if len(pool.items) != int(pool.capacity) {
		panic("must Fill the pool before using it")
	}
	if indirect < 0 || indirect >= int(pool.capacity) {
		panic("invalid bounded pool indirect")
	}
	pool.items[indirect] = value
}

// Cap returns the pool's fixed capacity.
func (pool *BoundedPool[T]) Cap() int { return int(pool.capacity) }

// Get retrieves a slot's indirect index, or iox.ErrWouldBlock if the pool is
// empty and SetNonblock(true), or after an adaptive backoff if blocking.
func (pool *BoundedPool[T]) Get() (indirect int, err error) {
	if len(pool.items) != int(pool.capacity) {
		panic("must Fill the pool before using it")
	}
	var aw iox.Backoff
	for {
		entry, err := pool.tryGet()
		if err == nil {
			return int(entry & uint64(pool.mask)), nil
		}
		if err == iox.ErrWouldBlock {
			if pool.nonblocking {
				return boundedPoolEntryEmpty, err
			}
			aw.Wait()
			continue
		}
		return boundedPoolEntryEmpty, err
	}
}

// Put returns a slot's indirect index to the pool.
func (pool *BoundedPool[T]) Put(indirect int) error {
	if len(pool.items) != int(pool.capacity) {
		panic("must Fill the pool before using it")
	}
	entry := uint64(indirect)
	var aw iox.Backoff
	for {
		err := pool.tryPut(entry)
		if err == nil {
			return nil
		}
		if err == iox.ErrWouldBlock {
			if pool.nonblocking {
				return err
			}
			aw.Wait()
			continue
		}
		return err
	}
}

func (pool *BoundedPool[T]) tryGet() (entry uint64, err error) {
	sw := spin.Wait{}
	for {
		h, t := pool.head.Load(), pool.tail.Load()
		hi := pool.remap(h & pool.mask)
		e := pool.entries[hi].Load()

		if h != pool.head.Load() {
			sw.Once()
			continue
		}
		if h == t {
			return boundedPoolEntryEmpty, iox.ErrWouldBlock
		}

		nextTurn := (h/pool.capacity + 1) & boundedPoolEntryTurnMask
		if e == pool.empty(nextTurn) {
			pool.head.CompareAndSwap(h, h+1)
			sw.Once()
			continue
		}
		ok := pool.entries[hi].CompareAndSwap(e, pool.empty(nextTurn))
		pool.head.CompareAndSwap(h, h+1)
		if ok {
			return e, nil
		}
		sw.Once()
	}
}

func (pool *BoundedPool[T]) tryPut(e uint64) error {
	sw := spin.Wait{}
	for {
		h, t := pool.head.Load(), pool.tail.Load()
		if t != pool.tail.Load() {
			sw.Once()
			continue
		}
		if t == h+pool.capacity {
			return iox.ErrWouldBlock
		}
		turn, ti := (t/pool.capacity)&boundedPoolEntryTurnMask, pool.remap(t)
		ok := pool.entries[ti].CompareAndSwap(pool.empty(turn), e)
		pool.tail.CompareAndSwap(t, t+1)
		if ok {
			return nil
		}
		sw.Once()
	}
}

func (pool *BoundedPool[T]) remap(cursor uint32) int {
	p, q := cursor/pool.remapN, cursor&pool.remapMask
	return int(q*pool.remapM + p%pool.remapM)
}

func (pool *BoundedPool[T]) empty(turn uint32) uint64 {
	return boundedPoolEntryEmpty | uint64(turn&boundedPoolEntryTurnMask)
}

// tierCacheSlots is how many backend regions each size tier keeps on hand;
// every tier, small or large, gets the same number of slots.
const tierCacheSlots = 8

// tierCache is a fixed-capacity, pre-backed BoundedPool for one size tier:
// every slot is a real, eagerly-allocated region of exactly that tier's
// size, addressed by index. Because the regions never move once Filled,
// byAddr lets release() find a returning region's slot in O(1); regions that
// didn't come from this tier (or arrive when the ring is already full) are
// simply left for the garbage collector.
type tierCache struct {
	pool  *BoundedPool[[]byte]
	byAddr map[uintptr]int
}

func newTierCache(size uintptr) *tierCache {
	pool := NewBoundedPool[[]byte](tierCacheSlots)
	byAddr := make(map[uintptr]int, tierCacheSlots)
	var idx int
	pool.Fill(func() []byte {
		region := membuf.Aligned(int(size), membuf.CacheLineSize)
		byAddr[uintptr(unsafe.Pointer(unsafe.SliceData(region)))] = idx
		idx++
		return region
	})
	pool.SetNonblock(true)
	return &tierCache{pool: pool, byAddr: byAddr}
}

func (c *tierCache) acquire() []byte {
	slot, err := c.pool.Get()
	if err != nil {
		return nil
	}
	return c.pool.Value(slot)
}

func (c *tierCache) release(region []byte) bool {
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(region)))
	slot, ok := c.byAddr[addr]
	if !ok {
		return false
	}
	return c.pool.Put(slot) == nil
}

// backendRegionCache is the process-wide, concurrency-safe pool of raw
// backend memory regions shared by every internal/alloc.Allocator in the
// process. It is the single exception to "a container hierarchy is
// single-goroutine-owned": many independent Allocators may acquire/release
// same-sized backend regions concurrently, so a pool that outgrows its
// initial backend and a pool being garbage collected by two different
// goroutines never corrupt each other's memory.
type backendRegionCache struct {
	mu    sync.Mutex
	tiers [backendTierCount]*tierCache
}

var globalBackendCache backendRegionCache

// acquire returns a cached backend region of at least size bytes, or nil if
// the size falls outside the cached tiers or every slot in its tier is
// currently checked out — in both cases the caller mints a fresh region.
func (c *backendRegionCache) acquire(size uintptr) []byte {
	tier := backendTierOf(size)
	if tier < 0 {
		return nil
	}
	return c.tierFor(tier, size).acquire()
}

// release offers region back to the cache. If region's address doesn't
// match a slot the cache itself handed out (e.g. it was minted fresh
// because acquire missed, or its size falls outside the cached tiers), it
// is simply dropped.
func (c *backendRegionCache) release(size uintptr, region []byte) {
	tier := backendTierOf(size)
	if tier < 0 || region == nil {
		return
	}
	c.tierFor(tier, size).release(region)
}

func (c *backendRegionCache) tierFor(tier int, size uintptr) *tierCache {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tiers[tier] == nil {
		c.tiers[tier] = newTierCache(membuf.NextPow2(size))
	}
	return c.tiers[tier]
}
