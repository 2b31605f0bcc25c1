package tiers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultRemoteTimeout = 10 * time.Second

// Remote persists ranges. Create must return the server-assigned identifier.
// The store commits the validated draft locally, so the ranges returned by
// Create, Update and SetActive are informational and may be sparse.
type Remote interface {
	List(ctx context.Context, token string, category Category) ([]Range, error)
	Create(ctx context.Context, token string, category Category, draft Draft) (Range, error)
	Update(ctx context.Context, token string, category Category, id string, draft Draft) (Range, error)
	Delete(ctx context.Context, token string, category Category, id string) error
	SetActive(ctx context.Context, token string, category Category, id string, active bool) (Range, error)
}

// Store keeps a local, ordered copy of each category's ranges and gates every
// mutation through Validate before it reaches the remote. Local state changes
// only after the remote call succeeds.
type Store struct {
	remote  Remote
	timeout time.Duration
	logger  *zap.Logger
	tracer  trace.Tracer

	mu    sync.RWMutex
	sets  map[Category]*rangeSet
	locks map[Category]*sync.Mutex
}

type rangeSet struct {
	ranges   []Range
	nextSeq  int
	loadedAt time.Time
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithRemoteTimeout bounds every remote call.
func WithRemoteTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger used for remote failures and mutations.
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer overrides the tracer used for remote spans.
func WithTracer(tracer trace.Tracer) StoreOption {
	return func(s *Store) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// NewStore constructs a Store backed by remote.
func NewStore(remote Remote, opts ...StoreOption) *Store {
	if remote == nil {
		panic("tiers: remote is required")
	}
	s := &Store{
		remote:  remote,
		timeout: defaultRemoteTimeout,
		logger:  zap.NewNop(),
		tracer:  otel.Tracer("finitefield.org/delivery-admin/internal/tiers"),
		sets:    make(map[Category]*rangeSet),
		locks:   make(map[Category]*sync.Mutex),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Load fetches the category from the remote and replaces local state.
func (s *Store) Load(ctx context.Context, token string, category Category) ([]Range, error) {
	if _, err := PolicyFor(category); err != nil {
		return nil, err
	}
	unlock := s.lock(category)
	defer unlock()

	if err := s.load(ctx, token, category); err != nil {
		return nil, err
	}
	return s.List(category), nil
}

// Loaded reports whether the category has been fetched at least once.
func (s *Store) Loaded(category Category) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sets[category]
	return ok
}

// LoadedAt reports when the category was last refreshed from the remote.
func (s *Store) LoadedAt(category Category) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if set, ok := s.sets[category]; ok {
		return set.loadedAt
	}
	return time.Time{}
}

// List returns a copy of the category ordered by min ascending.
func (s *Store) List(category Category) []Range {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.sets[category]
	if !ok {
		return []Range{}
	}
	out := cloneRanges(set.ranges)
	SortRanges(out)
	return out
}

// Get returns one range of the category.
func (s *Store) Get(category Category, id string) (Range, error) {
	for _, r := range s.List(category) {
		if r.ID == id {
			return r, nil
		}
	}
	return Range{}, ErrRangeNotFound
}

// Create validates draft against the category and persists it.
func (s *Store) Create(ctx context.Context, token string, category Category, draft Draft) (Range, error) {
	if _, err := PolicyFor(category); err != nil {
		return Range{}, err
	}
	unlock := s.lock(category)
	defer unlock()

	if err := s.ensureLoaded(ctx, token, category); err != nil {
		return Range{}, err
	}
	if err := Validate(draft, s.List(category), ""); err != nil {
		return Range{}, err
	}

	draft = draft.normalized()
	var stored Range
	err := s.call(ctx, "create", category, func(ctx context.Context) error {
		var err error
		stored, err = s.remote.Create(ctx, token, category, draft)
		return err
	})
	if err != nil {
		return Range{}, err
	}
	id := strings.TrimSpace(stored.ID)
	if id == "" {
		return Range{}, &RemoteError{Op: "create", Err: errors.New("remote returned no range id")}
	}
	created := draft.Apply(Range{ID: id, Active: true})

	s.mu.Lock()
	created = s.sets[category].add(created)
	s.mu.Unlock()

	s.logger.Info("tier created",
		zap.String("category", string(category)),
		zap.String("range_id", created.ID),
	)
	return cloneRanges([]Range{created})[0], nil
}

// Update validates draft against the category excluding id and persists it.
// The active flag of the range is left unchanged.
func (s *Store) Update(ctx context.Context, token string, category Category, id string, draft Draft) (Range, error) {
	if _, err := PolicyFor(category); err != nil {
		return Range{}, err
	}
	unlock := s.lock(category)
	defer unlock()

	if err := s.ensureLoaded(ctx, token, category); err != nil {
		return Range{}, err
	}
	current, err := s.Get(category, id)
	if err != nil {
		return Range{}, err
	}
	if err := Validate(draft, s.List(category), id); err != nil {
		return Range{}, err
	}

	draft = draft.normalized()
	err = s.call(ctx, "update", category, func(ctx context.Context) error {
		_, err := s.remote.Update(ctx, token, category, id, draft)
		return err
	})
	if err != nil {
		return Range{}, err
	}
	updated := draft.Apply(current)

	s.mu.Lock()
	updated = s.sets[category].replace(id, updated)
	s.mu.Unlock()

	s.logger.Info("tier updated",
		zap.String("category", string(category)),
		zap.String("range_id", id),
	)
	return cloneRanges([]Range{updated})[0], nil
}

// Delete removes the range. Categories whose policy requires one active range
// refuse to delete the last active one with *LastRuleError.
func (s *Store) Delete(ctx context.Context, token string, category Category, id string) error {
	policy, err := PolicyFor(category)
	if err != nil {
		return err
	}
	unlock := s.lock(category)
	defer unlock()

	if err := s.ensureLoaded(ctx, token, category); err != nil {
		return err
	}
	target, err := s.Get(category, id)
	if err != nil {
		return err
	}
	if policy.RequireOne && target.Active && s.activeCount(category) == 1 {
		return &LastRuleError{Category: category, RangeID: id}
	}

	err = s.call(ctx, "delete", category, func(ctx context.Context) error {
		return s.remote.Delete(ctx, token, category, id)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sets[category].remove(id)
	s.mu.Unlock()

	s.logger.Info("tier deleted",
		zap.String("category", string(category)),
		zap.String("range_id", id),
	)
	return nil
}

// ToggleActive flips the active flag. Deactivation never runs overlap checks
// but respects the category's RequireOne policy; activation re-checks the
// range against the other active ranges so the set stays disjoint.
func (s *Store) ToggleActive(ctx context.Context, token string, category Category, id string) (Range, error) {
	policy, err := PolicyFor(category)
	if err != nil {
		return Range{}, err
	}
	unlock := s.lock(category)
	defer unlock()

	if err := s.ensureLoaded(ctx, token, category); err != nil {
		return Range{}, err
	}
	target, err := s.Get(category, id)
	if err != nil {
		return Range{}, err
	}

	next := !target.Active
	if next {
		if err := Validate(target.Draft(), s.List(category), id); err != nil {
			return Range{}, err
		}
	} else if policy.RequireOne && s.activeCount(category) == 1 {
		return Range{}, &LastRuleError{Category: category, RangeID: id}
	}

	err = s.call(ctx, "set_active", category, func(ctx context.Context) error {
		_, err := s.remote.SetActive(ctx, token, category, id, next)
		return err
	})
	if err != nil {
		return Range{}, err
	}
	toggled := target
	toggled.Active = next

	s.mu.Lock()
	toggled = s.sets[category].replace(id, toggled)
	s.mu.Unlock()

	s.logger.Info("tier toggled",
		zap.String("category", string(category)),
		zap.String("range_id", id),
		zap.Bool("active", next),
	)
	return cloneRanges([]Range{toggled})[0], nil
}

// Resolve prices input against the current local snapshot of the category.
func (s *Store) Resolve(category Category, input float64) (Quote, error) {
	if _, err := PolicyFor(category); err != nil {
		return Quote{}, err
	}
	return Resolve(s.List(category), input)
}

// Gaps lists the uncovered intervals of the category's active ranges.
func (s *Store) Gaps(category Category) []Gap {
	return Gaps(s.List(category))
}

func (s *Store) activeCount(category Category) int {
	n := 0
	for _, r := range s.List(category) {
		if r.Active {
			n++
		}
	}
	return n
}

// lock serialises mutations of one category. Reads never take it.
func (s *Store) lock(category Category) func() {
	s.mu.Lock()
	m, ok := s.locks[category]
	if !ok {
		m = &sync.Mutex{}
		s.locks[category] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func (s *Store) ensureLoaded(ctx context.Context, token string, category Category) error {
	if s.Loaded(category) {
		return nil
	}
	return s.load(ctx, token, category)
}

func (s *Store) load(ctx context.Context, token string, category Category) error {
	var fetched []Range
	err := s.call(ctx, "list", category, func(ctx context.Context) error {
		var err error
		fetched, err = s.remote.List(ctx, token, category)
		return err
	})
	if err != nil {
		return err
	}

	set := &rangeSet{loadedAt: time.Now()}
	for _, r := range fetched {
		set.add(r)
	}

	s.mu.Lock()
	s.sets[category] = set
	s.mu.Unlock()
	return nil
}

// call runs fn with the remote timeout inside a span and normalises failures
// into *RemoteError.
func (s *Store) call(ctx context.Context, op string, category Category, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "tiers.remote."+op, trace.WithAttributes(
		attribute.String("tiers.category", string(category)),
	))
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	if err == nil {
		return nil
	}

	err = asRemoteError(op, err)
	span.RecordError(err)
	span.SetStatus(codes.Error, op+" failed")
	s.logger.Warn("tier remote call failed",
		zap.String("op", op),
		zap.String("category", string(category)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)
	return err
}

func (set *rangeSet) add(r Range) Range {
	set.nextSeq++
	r.Seq = set.nextSeq
	r.Max = cloneBound(r.Max)
	set.ranges = append(set.ranges, r)
	return r
}

func (set *rangeSet) replace(id string, r Range) Range {
	for i := range set.ranges {
		if set.ranges[i].ID == id {
			r.Seq = set.ranges[i].Seq
			r.Max = cloneBound(r.Max)
			set.ranges[i] = r
			return r
		}
	}
	return set.add(r)
}

func (set *rangeSet) remove(id string) {
	for i := range set.ranges {
		if set.ranges[i].ID == id {
			set.ranges = append(set.ranges[:i], set.ranges[i+1:]...)
			return
		}
	}
}
