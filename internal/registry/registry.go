// Package registry holds the in-memory table of currently connected parties.
//
// The table is sharded by a hash of the party id. Every per-key operation runs
// under its shard's lock, so operations on one party are linearizable. Scans
// copy each shard in turn and never hold a lock while calling back into the
// caller, so a scan sees a consistent copy but not an atomic view of all keys.
package registry

import (
	"hash/fnv"
	"sort"
	"sync"

	"dispatch-service/internal/models"
)

const defaultShardCount = 16

type shard struct {
	mu      sync.RWMutex
	parties map[string]models.Party
}

// Registry is the process-wide connection table keyed by party id. A party is
// present iff it currently holds a live channel.
type Registry struct {
	shards []*shard
}

// New creates a Registry with shardCount shards (16 when shardCount <= 0).
func New(shardCount int) *Registry {
	if shardCount <= 0 {
		shardCount = defaultShardCount
	}
	r := &Registry{shards: make([]*shard, shardCount)}
	for i := range r.shards {
		r.shards[i] = &shard{parties: make(map[string]models.Party)}
	}
	return r
}

func (r *Registry) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return r.shards[h.Sum32()%uint32(len(r.shards))]
}

// clone detaches the location pointer so callers never share mutable state
// with the table.
func clone(p models.Party) models.Party {
	if p.Location != nil {
		loc := *p.Location
		p.Location = &loc
	}
	p.Online = true
	return p
}

// Put inserts or fully replaces the entry for party.ID.
func (r *Registry) Put(party models.Party) {
	s := r.shardFor(party.ID)
	s.mu.Lock()
	s.parties[party.ID] = clone(party)
	s.mu.Unlock()
}

// UpdateLocation moves a connected party. It returns false when id is absent.
func (r *Registry) UpdateLocation(id string, lat, lon float64) bool {
	s := r.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parties[id]
	if !ok {
		return false
	}
	p.Location = &models.Location{Latitude: lat, Longitude: lon}
	s.parties[id] = p
	return true
}

// Get returns a copy of the entry for id.
func (r *Registry) Get(id string) (models.Party, bool) {
	s := r.shardFor(id)
	s.mu.RLock()
	p, ok := s.parties[id]
	s.mu.RUnlock()
	if !ok {
		return models.Party{}, false
	}
	return clone(p), true
}

// Has reports whether id is currently connected.
func (r *Registry) Has(id string) bool {
	s := r.shardFor(id)
	s.mu.RLock()
	_, ok := s.parties[id]
	s.mu.RUnlock()
	return ok
}

// Remove deletes id. Removing an absent id is a no-op.
func (r *Registry) Remove(id string) {
	s := r.shardFor(id)
	s.mu.Lock()
	delete(s.parties, id)
	s.mu.Unlock()
}

// RemoveIfHandle deletes id only while its entry is still bound to handle.
// A party that reconnected on a new channel is left alone.
func (r *Registry) RemoveIfHandle(id, handle string) bool {
	s := r.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parties[id]
	if !ok || p.ChannelHandle != handle {
		return false
	}
	delete(s.parties, id)
	return true
}

// ForEachRecipientOfCategory calls fn for every connected recipient whose
// category matches. fn runs on a snapshot taken before the first call.
func (r *Registry) ForEachRecipientOfCategory(category string, fn func(models.Party)) {
	matches := r.collect(func(p models.Party) bool { return p.IsRecipientOf(category) })
	for _, p := range matches {
		fn(p)
	}
}

// Snapshot returns copies of all entries ordered by id.
func (r *Registry) Snapshot() []models.Party {
	all := r.collect(func(models.Party) bool { return true })
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

// Len returns the number of connected parties.
func (r *Registry) Len() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.parties)
		s.mu.RUnlock()
	}
	return n
}

func (r *Registry) collect(keep func(models.Party) bool) []models.Party {
	var out []models.Party
	for _, s := range r.shards {
		s.mu.RLock()
		for _, p := range s.parties {
			if keep(p) {
				out = append(out, clone(p))
			}
		}
		s.mu.RUnlock()
	}
	return out
}
