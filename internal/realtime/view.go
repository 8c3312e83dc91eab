package realtime

import (
	"context"
	"sort"
	"sync"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SyncState is the synchronisation state of one cached pair.
type SyncState string

const (
	// StateConfirmed means the cached pair matches the last database read.
	StateConfirmed SyncState = "confirmed"
	// StatePendingLocal means a local change was applied and its write has
	// not been confirmed yet.
	StatePendingLocal SyncState = "pending_local"
	// StateReverting means the write failed and the pair is being reloaded.
	StateReverting SyncState = "reverting"
)

// Loader fetches pair aggregates. A nil ids slice loads every pair.
type Loader func(ctx context.Context, ids []uuid.UUID) ([]model.ClassPairAggregate, error)

type entry struct {
	agg   model.ClassPairAggregate
	state SyncState
	// stale is set when a change event arrives while a local change is
	// pending, or when a reload failed. The pair is reloaded once the change
	// settles or on the next event.
	stale bool
}

// PairView is an in-memory copy of every class pair aggregate. It is
// refreshed from change events, scoped to the affected pair when the event
// names one.
type PairView struct {
	load Loader
	log  zerolog.Logger

	mu      sync.RWMutex
	pairs   map[uuid.UUID]*entry
	loaded  bool
	version uint64
	subs    map[chan uint64]struct{}
}

// NewPairView creates an empty view.
func NewPairView(load Loader, log zerolog.Logger) *PairView {
	return &PairView{
		load:  load,
		log:   log.With().Str("component", "pair_view").Logger(),
		pairs: make(map[uuid.UUID]*entry),
		subs:  make(map[chan uint64]struct{}),
	}
}

// Loaded reports whether a full load has completed.
func (v *PairView) Loaded() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loaded
}

// Snapshot returns copies of every cached pair ordered by name.
func (v *PairView) Snapshot() []model.ClassPairAggregate {
	v.mu.RLock()
	out := make([]model.ClassPairAggregate, 0, len(v.pairs))
	for _, e := range v.pairs {
		out = append(out, e.agg)
	}
	v.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Get returns a copy of one pair and its state.
func (v *PairView) Get(id uuid.UUID) (model.ClassPairAggregate, SyncState, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	e, ok := v.pairs[id]
	if !ok {
		return model.ClassPairAggregate{}, "", false
	}
	return e.agg, e.state, true
}

// Apply mutates a cached pair and marks it pending.
func (v *PairView) Apply(id uuid.UUID, mutate func(*model.ClassPairAggregate)) bool {
	v.mu.Lock()
	e, ok := v.pairs[id]
	if !ok {
		v.mu.Unlock()
		return false
	}
	agg := cloneAggregate(e.agg)
	mutate(&agg)
	e.agg = agg
	e.state = StatePendingLocal
	v.bumpLocked()
	v.mu.Unlock()
	return true
}

// Confirm marks a pending pair as confirmed. A pair that received change
// events while pending is reloaded.
func (v *PairView) Confirm(id uuid.UUID) {
	v.mu.Lock()
	e, ok := v.pairs[id]
	if !ok {
		v.mu.Unlock()
		return
	}
	stale := e.stale
	e.state = StateConfirmed
	e.stale = false
	v.mu.Unlock()

	if stale {
		v.Reload(context.Background(), &id)
	}
}

// Revert discards a pending change by reloading the pair.
func (v *PairView) Revert(ctx context.Context, id uuid.UUID) {
	v.mu.Lock()
	if e, ok := v.pairs[id]; ok {
		e.state = StateReverting
	}
	v.mu.Unlock()

	v.Reload(ctx, &id)
}

// Reload refetches one pair, or everything when id is nil. A pair the
// database no longer has is dropped. A failed load keeps the cached pair
// and marks it stale.
func (v *PairView) Reload(ctx context.Context, id *uuid.UUID) {
	if id == nil {
		v.reloadAll(ctx)
		return
	}

	aggs, err := v.load(ctx, []uuid.UUID{*id})
	if err != nil {
		v.log.Error().Err(err).Str("pair_id", id.String()).Msg("pair reload failed")
		// Keep serving the last known copy until a later reload succeeds.
		v.mu.Lock()
		if e, ok := v.pairs[*id]; ok {
			e.state = StateConfirmed
			e.stale = true
			v.bumpLocked()
		}
		v.mu.Unlock()
		return
	}

	v.mu.Lock()
	if len(aggs) == 0 {
		delete(v.pairs, *id)
	} else {
		v.pairs[*id] = &entry{agg: aggs[0], state: StateConfirmed}
	}
	v.bumpLocked()
	v.mu.Unlock()
}

func (v *PairView) reloadAll(ctx context.Context) {
	aggs, err := v.load(ctx, nil)
	if err != nil {
		v.log.Error().Err(err).Msg("full reload failed")
		return
	}

	fresh := make(map[uuid.UUID]*entry, len(aggs))
	for _, a := range aggs {
		fresh[a.ID] = &entry{agg: a, state: StateConfirmed}
	}

	v.mu.Lock()
	// Keep pending local changes; they settle through Confirm or Revert.
	for id, e := range v.pairs {
		if e.state == StatePendingLocal {
			if _, ok := fresh[id]; ok {
				e.stale = true
				fresh[id] = e
			}
		}
	}
	v.pairs = fresh
	v.loaded = true
	v.bumpLocked()
	v.mu.Unlock()
}

// HandleEvent refreshes the part of the view an event touches. Room
// changes and events without a pair reload everything.
func (v *PairView) HandleEvent(ctx context.Context, ev model.ChangeEvent) {
	if ev.PairID == nil || ev.Table == model.TableRooms {
		v.reloadAll(ctx)
		return
	}

	v.mu.Lock()
	if e, ok := v.pairs[*ev.PairID]; ok && e.state != StateConfirmed {
		e.stale = true
		v.mu.Unlock()
		return
	}
	v.mu.Unlock()

	v.Reload(ctx, ev.PairID)
}

// Run loads the view and applies events until the channel closes or ctx is
// done.
func (v *PairView) Run(ctx context.Context, events <-chan model.ChangeEvent) {
	v.reloadAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			v.HandleEvent(ctx, ev)
		}
	}
}

// Watch returns a channel receiving the view version after every change,
// and a function releasing it. Slow readers miss intermediate versions.
func (v *PairView) Watch() (<-chan uint64, func()) {
	ch := make(chan uint64, 1)
	v.mu.Lock()
	v.subs[ch] = struct{}{}
	v.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, ch)
			v.mu.Unlock()
		})
	}
}

func (v *PairView) bumpLocked() {
	v.version++
	for ch := range v.subs {
		select {
		case ch <- v.version:
		default:
		}
	}
}

func cloneAggregate(a model.ClassPairAggregate) model.ClassPairAggregate {
	out := a
	out.Courses = append([]string(nil), a.Courses...)
	out.CommonDisciplines = append([]string(nil), a.CommonDisciplines...)
	out.Schedule = a.Schedule.Clone()
	out.Students = append([]model.StudentSummary(nil), a.Students...)
	if a.ClassA != nil {
		c := *a.ClassA
		out.ClassA = &c
	}
	if a.ClassB != nil {
		c := *a.ClassB
		out.ClassB = &c
	}
	return out
}
