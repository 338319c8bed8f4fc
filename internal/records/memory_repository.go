package records

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/congo-pay/timelock_escrow/internal/address"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[address.Address]Record
}

// NewMemoryRepository constructs an in-memory repository for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[address.Address]Record)}
}

func (r *memoryRepository) Get(_ context.Context, addr address.Address) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.storage[addr]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, addr)
	}
	return record, nil
}

func (r *memoryRepository) Put(_ context.Context, record Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.storage[record.Address]; ok {
		existing.LockedAmount = record.LockedAmount
		r.storage[record.Address] = existing
		return nil
	}
	r.storage[record.Address] = record
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, addr address.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.storage[addr]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, addr)
	}
	delete(r.storage, addr)
	return nil
}

func (r *memoryRepository) Totals(_ context.Context) (Totals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var t Totals
	for _, record := range r.storage {
		t.Count++
		t.Locked += record.LockedAmount
	}
	return t, nil
}

// Checkpoint snapshots an in-memory repository and returns a function that
// rolls it back. ok is false for other backends.
func Checkpoint(repo Repository) (restore func(), ok bool) {
	mem, ok := repo.(*memoryRepository)
	if !ok {
		return func() {}, false
	}
	mem.mu.RLock()
	snapshot := maps.Clone(mem.storage)
	mem.mu.RUnlock()

	return func() {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.storage = snapshot
	}, true
}
