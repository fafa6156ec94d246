// Package memory models the on-chip banks and the off-chip Dram that fills
// them.
package memory

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/sarchlab/podsim/graph"
	"github.com/sarchlab/podsim/trace"
)

// Request asks for a tile to be present in a given round.
type Request struct {
	Round int
	Tile  graph.TileID
}

// A Bank is a fixed-capacity SRAM bank holding tiles of one kind.
type Bank struct {
	ID       int
	Kind     graph.Kind
	capacity int
	used     int

	arena  *graph.Arena
	logger *slog.Logger

	spawnQueue []Request

	// evictQueue is ordered by retention key; equal keys keep insertion order.
	evictQueue []Request
	retention  map[graph.TileID]int

	writeBackQueue []graph.TileID
}

// NewBank creates an empty bank.
func NewBank(
	id int,
	kind graph.Kind,
	capacity int,
	arena *graph.Arena,
	logger *slog.Logger,
) *Bank {
	return &Bank{
		ID:        id,
		Kind:      kind,
		capacity:  capacity,
		arena:     arena,
		logger:    trace.OrDefault(logger),
		retention: make(map[graph.TileID]int),
	}
}

// Name returns a short printable name such as "W3".
func (b *Bank) Name() string {
	return fmt.Sprintf("%s%d", b.Kind.Name(), b.ID)
}

// Capacity returns the size of the bank in bytes.
func (b *Bank) Capacity() int {
	return b.capacity
}

// Used returns the number of reserved bytes.
func (b *Bank) Used() int {
	return b.used
}

// Free returns the number of unreserved bytes.
func (b *Bank) Free() int {
	return b.capacity - b.used
}

func (b *Bank) mustOwn(t *graph.Tile) {
	if t.Kind != b.Kind || t.Bank != b.ID {
		panic(fmt.Sprintf("tile %d (%s%d) does not belong to bank %s",
			t.ID, t.Kind.Name(), t.Bank, b.Name()))
	}
}

// Alloc reserves room for a tile needed in round. A tile that is already
// allocated only has its retention extended. Alloc returns false if the bank
// lacks room.
func (b *Bank) Alloc(round int, id graph.TileID) bool {
	t := b.arena.Tile(id)
	b.mustOwn(t)

	if t.Allocated() {
		b.PushEvictQueue(round, id)
		return true
	}

	size := t.MemorySize()
	if b.used+size > b.capacity {
		return false
	}

	b.used += size
	t.MarkAllocated()
	b.PushEvictQueue(round, id)

	trace.Log(b.logger, "Alloc",
		"bank", b.Name(), "tile", id, "round", round, "used", b.used)

	return true
}

// AllocOrEvict keeps evicting until the tile fits or nothing more can be
// evicted before currentRound.
func (b *Bank) AllocOrEvict(round int, id graph.TileID, currentRound int) bool {
	for !b.Alloc(round, id) {
		if !b.Evict(currentRound) {
			return false
		}
	}

	return true
}

// PushEvictQueue records that the tile must stay resident through round. A
// tile already queued only ever has its key extended.
func (b *Bank) PushEvictQueue(round int, id graph.TileID) {
	if key, ok := b.retention[id]; ok {
		if round <= key {
			return
		}

		b.removeFromEvictQueue(id)
	}

	b.retention[id] = round
	pos := sort.Search(len(b.evictQueue), func(i int) bool {
		return b.evictQueue[i].Round > round
	})
	b.evictQueue = append(b.evictQueue, Request{})
	copy(b.evictQueue[pos+1:], b.evictQueue[pos:])
	b.evictQueue[pos] = Request{Round: round, Tile: id}
}

func (b *Bank) removeFromEvictQueue(id graph.TileID) {
	for i, e := range b.evictQueue {
		if e.Tile == id {
			b.evictQueue = append(b.evictQueue[:i], b.evictQueue[i+1:]...)
			break
		}
	}

	delete(b.retention, id)
}

// RetentionKey returns the last round the tile is retained for.
func (b *Bank) RetentionKey(id graph.TileID) (int, bool) {
	key, ok := b.retention[id]
	return key, ok
}

// EvictQueueLen returns the number of tiles waiting for eviction.
func (b *Bank) EvictQueueLen() int {
	return len(b.evictQueue)
}

// Evict drops the front of the eviction queue if its key lies before
// currentRound and no consumer still needs it. It reports whether an entry
// was removed.
func (b *Bank) Evict(currentRound int) bool {
	if !b.canEvict(currentRound) {
		return false
	}

	front := b.evictQueue[0]
	b.evictQueue = b.evictQueue[1:]
	delete(b.retention, front.Tile)
	b.release(front.Tile)

	trace.Log(b.logger, "Evict",
		"bank", b.Name(), "tile", front.Tile, "round", currentRound)

	return true
}

func (b *Bank) canEvict(currentRound int) bool {
	if len(b.evictQueue) == 0 {
		return false
	}

	front := b.evictQueue[0]

	return front.Round < currentRound && b.expired(front)
}

// expired tells if an evict queue entry may leave the bank. Results made on
// chip stay until every consumer settled. Operands only wait for the
// consumers up to the entry's key, as later ones fetch them again.
func (b *Bank) expired(e Request) bool {
	if b.Kind == graph.KindP {
		return b.arena.IsTileDead(e.Tile)
	}

	return b.arena.IsTileDeadBy(e.Tile, e.Round)
}

// GarbageCollect removes every dead tile whose retention key is at most round
// and returns the number of tiles removed.
func (b *Bank) GarbageCollect(round int) int {
	kept := b.evictQueue[:0]
	removed := 0

	for _, e := range b.evictQueue {
		if e.Round > round || !b.expired(e) {
			kept = append(kept, e)
			continue
		}

		delete(b.retention, e.Tile)
		b.release(e.Tile)
		removed++
	}

	b.evictQueue = kept

	return removed
}

// release frees a tile's room, or queues it for write back if the tile is a
// result nobody on chip consumes.
func (b *Bank) release(id graph.TileID) {
	t := b.arena.Tile(id)

	if b.arena.IsOutput(id) {
		t.ResetTransfer()
		b.writeBackQueue = append(b.writeBackQueue, id)

		return
	}

	b.free(t)
}

func (b *Bank) free(t *graph.Tile) {
	b.used -= t.MemorySize()
	if b.used < 0 {
		panic(fmt.Sprintf("bank %s usage became negative", b.Name()))
	}

	t.MarkReleased()
}

// EnqueueSpawn queues a tile to be allocated ahead of round.
func (b *Bank) EnqueueSpawn(round int, id graph.TileID) {
	b.mustOwn(b.arena.Tile(id))
	b.spawnQueue = append(b.spawnQueue, Request{Round: round, Tile: id})
}

// SpawnHead returns the oldest pending spawn request.
func (b *Bank) SpawnHead() (Request, bool) {
	if len(b.spawnQueue) == 0 {
		return Request{}, false
	}

	return b.spawnQueue[0], true
}

// SpawnQueueLen returns the number of pending spawn requests.
func (b *Bank) SpawnQueueLen() int {
	return len(b.spawnQueue)
}

// Spawn allocates queued tiles needed no later than horizon, in order,
// evicting tiles that expired before currentRound when room runs out. It
// stops at the first tile that cannot be allocated. Tiles produced on chip
// become resident immediately. Tiles that must come from Dram are returned so
// that the caller can queue the loads.
func (b *Bank) Spawn(horizon, currentRound int) []Request {
	var loads []Request

	for len(b.spawnQueue) > 0 {
		req := b.spawnQueue[0]
		if req.Round > horizon {
			break
		}

		t := b.arena.Tile(req.Tile)
		if t.Allocated() {
			b.PushEvictQueue(req.Round, req.Tile)
			b.spawnQueue = b.spawnQueue[1:]

			continue
		}

		if !b.AllocOrEvict(req.Round, req.Tile, currentRound) {
			break
		}

		b.spawnQueue = b.spawnQueue[1:]

		if t.Kind == graph.KindP {
			t.MarkFilled()
			continue
		}

		loads = append(loads, req)
	}

	return loads
}

// Stuck tells if the head of the spawn queue cannot be allocated until
// currentRound advances: it does not fit, nothing can be evicted and no write
// back is underway to free room.
func (b *Bank) Stuck(currentRound int) (Request, bool) {
	head, ok := b.SpawnHead()
	if !ok {
		return Request{}, false
	}

	t := b.arena.Tile(head.Tile)
	if t.Allocated() || b.used+t.MemorySize() <= b.capacity {
		return head, false
	}

	if len(b.writeBackQueue) > 0 || b.canEvict(currentRound) {
		return head, false
	}

	return head, true
}

// WriteBackQueueLen returns the number of tiles waiting to be stored.
func (b *Bank) WriteBackQueueLen() int {
	return len(b.writeBackQueue)
}

// WriteBack stores queued result tiles using at most budget bytes and returns
// the bytes moved. A fully stored tile gives its room back.
func (b *Bank) WriteBack(budget float64) float64 {
	used := 0.0

	for len(b.writeBackQueue) > 0 && used < budget {
		t := b.arena.Tile(b.writeBackQueue[0])
		used += t.Transfer(budget - used)

		if t.Remaining() > 0 {
			break
		}

		b.writeBackQueue = b.writeBackQueue[1:]
		b.free(t)
	}

	return used
}
