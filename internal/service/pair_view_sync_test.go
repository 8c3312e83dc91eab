package service

import (
	"context"
	"testing"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/associacao-ensino/inscricoes-backend/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadedView returns a view over db that never receives change events, as
// when the realtime feed is disabled.
func loadedView(db *memDB) *realtime.PairView {
	_, _, _, pairs, _ := db.stores()
	v := realtime.NewPairView(pairs.LoadAggregates, testLog)
	v.Reload(context.Background(), nil)
	return v
}

func snapshotNames(v *realtime.PairView) []string {
	var names []string
	for _, a := range v.Snapshot() {
		names = append(names, a.Name)
	}
	return names
}

func TestClassPairWritesRefreshViewWithoutEvents(t *testing.T) {
	ctx := context.Background()
	f := newPairFixture()
	seedCourse(f.db, "enfermagem", true, "Anatomia")
	view := loadedView(f.db)
	f.workflow.view = view
	require.True(t, view.Loaded())
	require.Empty(t, view.Snapshot())

	created, err := f.workflow.Create(ctx, adminCaller, createRequest("enfermagem"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Par 1 - Manhã"}, snapshotNames(view))

	dup, err := f.workflow.Duplicate(ctx, adminCaller, model.PeriodManha)
	require.NoError(t, err)
	assert.Equal(t, []string{"Par 1 - Manhã", "Par 2 - Manhã"}, snapshotNames(view))

	name := "Par Noturno"
	_, err = f.workflow.Update(ctx, adminCaller, dup.ID, model.UpdateClassPairRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, []string{"Par 1 - Manhã", "Par Noturno"}, snapshotNames(view))

	_, err = f.workflow.ToggleActive(ctx, adminCaller, created.ID)
	require.NoError(t, err)
	got, state, ok := view.Get(created.ID)
	require.True(t, ok)
	assert.False(t, got.Active)
	assert.Equal(t, realtime.StateConfirmed, state)

	_, err = f.workflow.Delete(ctx, adminCaller, created.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Par Noturno"}, snapshotNames(view))
}

func TestEnrollmentRefreshesView(t *testing.T) {
	f := newEnrollFixture(30)
	view := loadedView(f.db)
	f.workflow.view = view

	res := f.workflow.Enroll(context.Background(), model.Caller{}, f.request(model.VariantA), nil, nil)
	require.True(t, res.Success, res.Message)

	agg, _, ok := view.Get(f.pair.ID)
	require.True(t, ok)
	require.Len(t, agg.Students, 1)
	assert.Equal(t, res.Student.ID, agg.Students[0].ID)
	assert.Equal(t, 1, agg.ClassA.Enrolled)
}

func TestStudentWritesRefreshView(t *testing.T) {
	ctx := context.Background()
	f := newStudentFixture()
	view := loadedView(f.db)
	f.service.view = view

	_, err := f.service.UpdatePayment(ctx, adminCaller, f.student.ID, model.UpdatePaymentRequest{Status: model.StatusCancelled})
	require.NoError(t, err)
	agg, _, _ := view.Get(f.pair.ID)
	assert.Equal(t, 0, agg.ClassA.Enrolled)
	assert.Equal(t, model.StatusCancelled, agg.Students[0].Status)

	require.NoError(t, f.service.Delete(ctx, adminCaller, f.student.ID))
	agg, _, _ = view.Get(f.pair.ID)
	assert.Empty(t, agg.Students)
}
