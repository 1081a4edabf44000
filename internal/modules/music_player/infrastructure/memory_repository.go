package infrastructure

import (
	"cmp"
	"slices"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/samber/lo"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

var _ domain.PlayerStateRepository = (*MemoryRepository)(nil)

// MemoryRepository keeps the live per-guild boards in process memory.
// Persisted queues live in the GormStore and are restored on join.
type MemoryRepository struct {
	mu     sync.RWMutex
	boards map[snowflake.ID]*domain.PlayerState
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{boards: make(map[snowflake.ID]*domain.PlayerState)}
}

func (r *MemoryRepository) Get(guildID snowflake.ID) *domain.PlayerState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.boards[guildID]
}

func (r *MemoryRepository) Save(state *domain.PlayerState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boards[state.GetGuildID()] = state
}

func (r *MemoryRepository) Delete(guildID snowflake.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.boards, guildID)
}

// All returns a snapshot of the stored boards ordered by guild ID.
func (r *MemoryRepository) All() []*domain.PlayerState {
	r.mu.RLock()
	states := lo.Values(r.boards)
	r.mu.RUnlock()

	slices.SortFunc(states, func(a, b *domain.PlayerState) int {
		return cmp.Compare(a.GetGuildID(), b.GetGuildID())
	})
	return states
}
