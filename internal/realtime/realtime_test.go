package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDB is the source of truth behind a PairView in tests.
type fakeDB struct {
	mu    sync.Mutex
	pairs map[uuid.UUID]model.ClassPairAggregate
	loads [][]uuid.UUID
	err   error
}

func (db *fakeDB) load(_ context.Context, ids []uuid.UUID) ([]model.ClassPairAggregate, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.loads = append(db.loads, ids)
	if db.err != nil {
		return nil, db.err
	}
	var out []model.ClassPairAggregate
	for id, p := range db.pairs {
		if ids == nil {
			out = append(out, p)
			continue
		}
		for _, want := range ids {
			if want == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (db *fakeDB) set(p model.ClassPairAggregate) {
	db.mu.Lock()
	db.pairs[p.ID] = p
	db.mu.Unlock()
}

func newPair(name string, active bool) model.ClassPairAggregate {
	return model.ClassPairAggregate{
		ClassPair: model.ClassPair{ID: uuid.New(), Name: name, Active: active, Courses: []string{"enfermagem"}},
		ClassA:    &model.Class{Variant: model.VariantA, Capacity: 30},
		ClassB:    &model.Class{Variant: model.VariantB, Capacity: 30},
	}
}

func newView(pairs ...model.ClassPairAggregate) (*PairView, *fakeDB) {
	db := &fakeDB{pairs: map[uuid.UUID]model.ClassPairAggregate{}}
	for _, p := range pairs {
		db.pairs[p.ID] = p
	}
	v := NewPairView(db.load, zerolog.Nop())
	v.Reload(context.Background(), nil)
	return v, db
}

func TestPairViewLoad(t *testing.T) {
	b := newPair("Par 2 - Manhã", true)
	a := newPair("Par 1 - Manhã", true)
	v, _ := newView(b, a)

	assert.True(t, v.Loaded())
	snap := v.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "Par 1 - Manhã", snap[0].Name)
	assert.Equal(t, "Par 2 - Manhã", snap[1].Name)
}

func TestPairViewApplyConfirm(t *testing.T) {
	p := newPair("Par 1 - Manhã", true)
	v, db := newView(p)

	ok := v.Apply(p.ID, func(a *model.ClassPairAggregate) {
		a.Active = false
		a.ClassA.Capacity = 10
	})
	require.True(t, ok)

	got, state, _ := v.Get(p.ID)
	assert.False(t, got.Active)
	assert.Equal(t, 10, got.ClassA.Capacity)
	assert.Equal(t, StatePendingLocal, state)
	// The mutation works on a copy.
	assert.Equal(t, 30, p.ClassA.Capacity)

	p.Active = false
	db.set(p)
	v.Confirm(p.ID)
	_, state, _ = v.Get(p.ID)
	assert.Equal(t, StateConfirmed, state)

	assert.False(t, v.Apply(uuid.New(), func(*model.ClassPairAggregate) {}))
}

func TestPairViewRevert(t *testing.T) {
	p := newPair("Par 1 - Manhã", true)
	v, _ := newView(p)

	v.Apply(p.ID, func(a *model.ClassPairAggregate) { a.Active = false })
	v.Revert(context.Background(), p.ID)

	got, state, ok := v.Get(p.ID)
	require.True(t, ok)
	assert.True(t, got.Active)
	assert.Equal(t, StateConfirmed, state)
}

func TestPairViewEventsWhilePending(t *testing.T) {
	p := newPair("Par 1 - Manhã", true)
	v, db := newView(p)
	ctx := context.Background()

	v.Apply(p.ID, func(a *model.ClassPairAggregate) { a.Active = false })

	// Another writer renames the pair while the local change is pending.
	renamed := p
	renamed.Name = "Par Renomeado"
	db.set(renamed)
	v.HandleEvent(ctx, model.ChangeEvent{Table: model.TableClassPairs, Op: model.OpUpdate, PairID: &p.ID})

	got, state, _ := v.Get(p.ID)
	assert.Equal(t, StatePendingLocal, state)
	assert.Equal(t, "Par 1 - Manhã", got.Name)
	assert.False(t, got.Active)

	// A full reload keeps the pending entry too.
	v.HandleEvent(ctx, model.ChangeEvent{Table: model.TableRooms, Op: model.OpUpdate})
	_, state, _ = v.Get(p.ID)
	assert.Equal(t, StatePendingLocal, state)

	// Confirming a stale entry reloads it.
	v.Confirm(p.ID)
	got, state, _ = v.Get(p.ID)
	assert.Equal(t, StateConfirmed, state)
	assert.Equal(t, "Par Renomeado", got.Name)
}

func TestPairViewScopedReload(t *testing.T) {
	a := newPair("Par 1 - Manhã", true)
	b := newPair("Par 2 - Manhã", true)
	v, db := newView(a, b)
	db.loads = nil

	v.HandleEvent(context.Background(), model.ChangeEvent{Table: model.TableStudents, Op: model.OpInsert, PairID: &a.ID})
	require.Len(t, db.loads, 1)
	assert.Equal(t, []uuid.UUID{a.ID}, db.loads[0])

	// A deleted pair disappears from the view.
	db.mu.Lock()
	delete(db.pairs, b.ID)
	db.mu.Unlock()
	v.HandleEvent(context.Background(), model.ChangeEvent{Table: model.TableClassPairs, Op: model.OpDelete, PairID: &b.ID})
	_, _, ok := v.Get(b.ID)
	assert.False(t, ok)
}

func TestPairViewFailedReloadKeepsPair(t *testing.T) {
	p := newPair("Par 1 - Manhã", true)
	v, db := newView(p)
	ctx := context.Background()

	renamed := p
	renamed.Name = "Par Renomeado"
	db.set(renamed)
	db.err = errors.New("connection reset")
	v.Reload(ctx, &p.ID)

	assert.True(t, v.Loaded())
	snap := v.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "Par 1 - Manhã", snap[0].Name)
	_, state, _ := v.Get(p.ID)
	assert.Equal(t, StateConfirmed, state)

	// A reverted change whose reload fails settles on the cached copy.
	v.Apply(p.ID, func(a *model.ClassPairAggregate) { a.Active = false })
	v.Revert(ctx, p.ID)
	_, state, ok := v.Get(p.ID)
	require.True(t, ok)
	assert.Equal(t, StateConfirmed, state)

	// The next event for the pair picks up the database copy.
	db.err = nil
	v.HandleEvent(ctx, model.ChangeEvent{Table: model.TableClassPairs, Op: model.OpUpdate, PairID: &p.ID})
	got, _, _ := v.Get(p.ID)
	assert.Equal(t, "Par Renomeado", got.Name)
	assert.True(t, got.Active)
}

func TestPairViewWatchAndRun(t *testing.T) {
	p := newPair("Par 1 - Manhã", true)
	db := &fakeDB{pairs: map[uuid.UUID]model.ClassPairAggregate{p.ID: p}}
	v := NewPairView(db.load, zerolog.Nop())

	versions, release := v.Watch()
	defer release()

	events := make(chan model.ChangeEvent)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		v.Run(ctx, events)
		close(done)
	}()

	select {
	case <-versions:
	case <-time.After(2 * time.Second):
		t.Fatal("no version after initial load")
	}
	assert.True(t, v.Loaded())

	events <- model.ChangeEvent{Table: model.TableClassPairs, Op: model.OpUpdate, PairID: &p.ID}
	select {
	case <-versions:
	case <-time.After(2 * time.Second):
		t.Fatal("no version after event")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestParseNotification(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	pairID := uuid.New()

	ev, err := ParseNotification(`{"table":"alunos","op":"INSERT","id":"42","turma_pair_id":"`+pairID.String()+`"}`, at)
	require.NoError(t, err)
	assert.Equal(t, model.TableStudents, ev.Table)
	assert.Equal(t, model.OpInsert, ev.Op)
	assert.Equal(t, "42", ev.ID)
	require.NotNil(t, ev.PairID)
	assert.Equal(t, pairID, *ev.PairID)
	assert.Equal(t, at, ev.At)

	ev, err = ParseNotification(`{"table":"salas","op":"DELETE","id":"7","turma_pair_id":null}`, at)
	require.NoError(t, err)
	assert.Nil(t, ev.PairID)

	for _, bad := range []string{
		`not json`,
		`{"op":"INSERT","id":"1"}`,
		`{"table":"alunos","op":"TRUNCATE","id":"1"}`,
		`{"table":"alunos","op":"UPDATE","id":"1","turma_pair_id":"nope"}`,
	} {
		_, err := ParseNotification(bad, at)
		assert.Error(t, err, bad)
	}
}
