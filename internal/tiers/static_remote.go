package tiers

import (
	"context"
	"sync"
)

// StaticRemote keeps ranges in memory. It backs local development and tests.
type StaticRemote struct {
	mu    sync.Mutex
	sets  map[Category][]Range
	newID IDGenerator
	calls map[string]int
	// Fail, when set, is consulted before every call and may inject an error.
	Fail func(op string) error
}

// NewStaticRemote constructs an in-memory remote seeded with sets.
func NewStaticRemote(seed map[Category][]Range) *StaticRemote {
	s := &StaticRemote{
		sets:  make(map[Category][]Range, len(seed)),
		newID: NewULID,
		calls: make(map[string]int),
	}
	for category, ranges := range seed {
		s.sets[category] = cloneRanges(ranges)
	}
	return s
}

// DefaultSeed is the schedule shown by a fresh local environment.
func DefaultSeed() map[Category][]Range {
	return map[Category][]Range{
		CategoryCommission: {
			{ID: "commission-near", Label: "近距離", Min: 0, Max: Bound(2), Formula: Formula{Base: 20, PerUnit: 15}, Active: true},
			{ID: "commission-mid", Label: "中距離", Min: 2, Max: Bound(6), Formula: Formula{Base: 10, PerUnit: 8}, Active: true},
			{ID: "commission-far", Label: "遠距離", Min: 6, Formula: Formula{Base: 30, PerUnit: 6}, Active: true},
		},
		CategoryFee: {
			{ID: "fee-small", Label: "少額注文", Min: 0, Max: Bound(1500), Formula: Formula{Base: 350}, Active: true},
			{ID: "fee-standard", Label: "通常注文", Min: 1500, Max: Bound(3000), Formula: Formula{Base: 200}, Active: true},
			{ID: "fee-large", Label: "大口注文", Min: 3000, Formula: Formula{Base: 0}, Active: true},
		},
	}
}

// Calls reports how many times op was invoked.
func (s *StaticRemote) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// TotalCalls reports how many calls were made across all operations.
func (s *StaticRemote) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// Snapshot returns the stored ranges of a category.
func (s *StaticRemote) Snapshot(category Category) []Range {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRanges(s.sets[category])
}

// List returns the stored ranges.
func (s *StaticRemote) List(ctx context.Context, _ string, category Category) ([]Range, error) {
	if err := s.begin(ctx, "list"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := cloneRanges(s.sets[category])
	if out == nil {
		out = []Range{}
	}
	return out, nil
}

// Create stores a new active range.
func (s *StaticRemote) Create(ctx context.Context, _ string, category Category, draft Draft) (Range, error) {
	return s.edit(ctx, "create", category, documentCreate(s.newID(), draft))
}

// Update rewrites the editable fields of a range.
func (s *StaticRemote) Update(ctx context.Context, _ string, category Category, id string, draft Draft) (Range, error) {
	return s.edit(ctx, "update", category, documentUpdate(id, draft))
}

// Delete removes a range.
func (s *StaticRemote) Delete(ctx context.Context, _ string, category Category, id string) error {
	_, err := s.edit(ctx, "delete", category, documentDelete(id))
	return err
}

// SetActive updates the active flag.
func (s *StaticRemote) SetActive(ctx context.Context, _ string, category Category, id string, active bool) (Range, error) {
	return s.edit(ctx, "set_active", category, documentSetActive(id, active))
}

func (s *StaticRemote) edit(ctx context.Context, op string, category Category, fn documentEdit) (Range, error) {
	if err := s.begin(ctx, op); err != nil {
		return Range{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next, changed, err := fn(s.sets[category])
	if err != nil {
		return Range{}, err
	}
	s.sets[category] = next
	return changed, nil
}

func (s *StaticRemote) begin(ctx context.Context, op string) error {
	s.mu.Lock()
	s.calls[op]++
	fail := s.Fail
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if fail != nil {
		return fail(op)
	}
	return nil
}
