package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type enrollFixture struct {
	db       *memDB
	bucket   *memBucket
	notifier *recordingNotifier
	audit    *recordingAudit
	pair     model.ClassPair
	classA   model.Class
	classB   model.Class
	workflow *EnrollmentWorkflow
}

func newEnrollFixture(capacity int) *enrollFixture {
	db := newMemDB()
	courses, _, classes, pairs, students := db.stores()
	seedCourse(db, "enfermagem", true, "Anatomia", "Português")
	seedCourse(db, "antigo", false, "Latim")
	pair, a, b := seedPair(db, true, capacity, "enfermagem", "antigo")

	f := &enrollFixture{
		db:       db,
		bucket:   newMemBucket(),
		notifier: &recordingNotifier{},
		audit:    &recordingAudit{},
		pair:     pair,
		classA:   a,
		classB:   b,
	}
	f.workflow = NewEnrollmentWorkflow(EnrollmentDeps{
		Pairs:        pairs,
		Classes:      classes,
		Students:     students,
		Courses:      courses,
		Bucket:       f.bucket,
		Notifier:     f.notifier,
		Tuition:      fixedTuition(15000),
		Audit:        f.audit,
		MaxFileBytes: 1024,
	}, testLog)
	f.workflow.now = func() time.Time { return time.UnixMilli(1767225600000) }
	return f
}

func (f *enrollFixture) request(variant model.Variant) model.EnrollmentRequest {
	return model.EnrollmentRequest{
		Name:          "Maria Silva",
		Email:         "maria@example.org",
		Phone:         "923456789",
		IDNumber:      "004512LA042",
		BirthDate:     "2004-05-17",
		CourseCode:    "enfermagem",
		Selection:     f.pair.ID.String() + ":" + string(variant),
		PaymentMethod: model.PaymentCash,
	}
}

func pdf(name string) *UploadedFile {
	body := "%PDF-1.4 test"
	return &UploadedFile{Filename: name, ContentType: "application/pdf", Size: int64(len(body)), Content: strings.NewReader(body)}
}

func TestEnrollSuccess(t *testing.T) {
	f := newEnrollFixture(30)
	var steps []Progress

	req := f.request(model.VariantB)
	req.Status = model.StatusConfirmed
	files := map[model.DocumentKind]*UploadedFile{
		model.DocIDCopy:       pdf("bi.pdf"),
		model.DocPaymentProof: pdf("talao.PDF"),
	}

	res := f.workflow.Enroll(context.Background(), model.Caller{}, req, files, func(p Progress) { steps = append(steps, p) })
	require.True(t, res.Success, res.Message)
	assert.Equal(t, StageDone, res.Stage)
	require.NotNil(t, res.Student)

	st := res.Student
	assert.Contains(t, res.Message, st.StudentNumber)
	assert.Equal(t, f.classB.ID, st.ClassID)
	assert.Equal(t, f.pair.ID, st.PairID)
	assert.Equal(t, model.StatusConfirmed, st.Status)
	assert.Equal(t, 15000.0, st.AmountPaid)
	assert.Equal(t, "Manhã", st.Shift)
	require.NotNil(t, st.BirthDate)
	assert.Equal(t, 2004, st.BirthDate.Year())
	assert.Nil(t, st.CreatedBy)

	require.NotNil(t, st.IDCopyPath)
	assert.Equal(t, "anonimo/1767225600000_copia_bi.pdf", *st.IDCopyPath)
	require.NotNil(t, st.PaymentProofPath)
	assert.Equal(t, "anonimo/1767225600000_comprovativo_pagamento.pdf", *st.PaymentProofPath)
	assert.Nil(t, st.PhotoPath)
	assert.Len(t, f.bucket.objects, 2)

	assert.Equal(t, 1, f.db.classes[f.classB.ID].Enrolled)
	assert.Equal(t, 0, f.db.classes[f.classA.ID].Enrolled)
	assert.Equal(t, 1, f.notifier.calls)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, model.TableStudents, f.audit.entries[0].Table)

	require.NotEmpty(t, steps)
	assert.Equal(t, 0, steps[0].Percent)
	assert.Equal(t, 100, steps[len(steps)-1].Percent)
	for i := 1; i < len(steps); i++ {
		assert.GreaterOrEqual(t, steps[i].Percent, steps[i-1].Percent, "progress went backwards at %s", steps[i].Stage)
	}
}

func TestEnrollDefaultsAndCaller(t *testing.T) {
	f := newEnrollFixture(30)
	req := f.request(model.VariantA)
	req.Email = ""

	res := f.workflow.Enroll(context.Background(), adminCaller, req, nil, nil)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, model.StatusEnrolled, res.Student.Status)
	assert.Zero(t, res.Student.AmountPaid)
	assert.Nil(t, res.Student.Email)
	require.NotNil(t, res.Student.CreatedBy)
	assert.Equal(t, adminCaller.UserID, *res.Student.CreatedBy)
	assert.Empty(t, f.bucket.objects)
}

func TestEnrollValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("missing required fields", func(t *testing.T) {
		f := newEnrollFixture(30)
		res := f.workflow.Enroll(ctx, model.Caller{}, model.EnrollmentRequest{Name: "Maria"}, nil, nil)
		assert.False(t, res.Success)
		assert.Equal(t, StageValidation, res.Stage)
		assert.Equal(t, KindValidation, res.Kind)
		for _, field := range []string{"telefone", "numero_bi", "curso_codigo", "turma_selecionada", "metodo_pagamento"} {
			assert.Contains(t, res.Message, field)
		}
		assert.Empty(t, f.db.writes())
	})

	t.Run("bad email", func(t *testing.T) {
		f := newEnrollFixture(30)
		req := f.request(model.VariantA)
		req.Email = "maria@"
		res := f.workflow.Enroll(ctx, model.Caller{}, req, nil, nil)
		assert.False(t, res.Success)
		assert.Equal(t, KindValidation, res.Kind)
		assert.Contains(t, res.Message, "email")
	})

	t.Run("bad selection", func(t *testing.T) {
		f := newEnrollFixture(30)
		req := f.request(model.VariantA)
		req.Selection = "par-1:A"
		res := f.workflow.Enroll(ctx, model.Caller{}, req, nil, nil)
		assert.Equal(t, KindValidation, res.Kind)
	})

	t.Run("file too large", func(t *testing.T) {
		f := newEnrollFixture(30)
		big := &UploadedFile{Filename: "foto.png", ContentType: "image/png", Size: 4096, Content: strings.NewReader("x")}
		res := f.workflow.Enroll(ctx, model.Caller{}, f.request(model.VariantA), map[model.DocumentKind]*UploadedFile{model.DocPhoto: big}, nil)
		assert.Equal(t, KindValidation, res.Kind)
		assert.Empty(t, f.bucket.objects)
	})

	t.Run("file type not allowed", func(t *testing.T) {
		f := newEnrollFixture(30)
		doc := &UploadedFile{Filename: "bi.docx", ContentType: "application/msword", Size: 10, Content: strings.NewReader("x")}
		res := f.workflow.Enroll(ctx, model.Caller{}, f.request(model.VariantA), map[model.DocumentKind]*UploadedFile{model.DocIDCopy: doc}, nil)
		assert.Equal(t, KindValidation, res.Kind)
	})
}

func TestEnrollPlacement(t *testing.T) {
	ctx := context.Background()

	t.Run("full class", func(t *testing.T) {
		f := newEnrollFixture(1)
		seedStudent(f.db, f.pair, f.classA, "999", "enfermagem")

		res := f.workflow.Enroll(ctx, model.Caller{}, f.request(model.VariantA), nil, nil)
		assert.False(t, res.Success)
		assert.Equal(t, StageClassPair, res.Stage)
		assert.Equal(t, KindConflict, res.Kind)
		assert.Contains(t, res.Message, "cheia")
		assert.Len(t, f.db.students, 1)

		// The other class of the pair still has room.
		res = f.workflow.Enroll(ctx, model.Caller{}, f.request(model.VariantB), nil, nil)
		assert.True(t, res.Success, res.Message)
	})

	t.Run("inactive pair", func(t *testing.T) {
		f := newEnrollFixture(30)
		p := f.db.pairs[f.pair.ID]
		p.Active = false
		f.db.pairs[f.pair.ID] = p

		res := f.workflow.Enroll(ctx, model.Caller{}, f.request(model.VariantA), nil, nil)
		assert.Equal(t, KindInactive, res.Kind)
	})

	t.Run("inactive course", func(t *testing.T) {
		f := newEnrollFixture(30)
		req := f.request(model.VariantA)
		req.CourseCode = "antigo"
		res := f.workflow.Enroll(ctx, model.Caller{}, req, nil, nil)
		assert.Equal(t, KindInactive, res.Kind)
	})

	t.Run("unknown course", func(t *testing.T) {
		f := newEnrollFixture(30)
		req := f.request(model.VariantA)
		req.CourseCode = "astronomia"
		res := f.workflow.Enroll(ctx, model.Caller{}, req, nil, nil)
		assert.Equal(t, KindNotFound, res.Kind)
	})

	t.Run("duplicate BI", func(t *testing.T) {
		f := newEnrollFixture(30)
		first := f.workflow.Enroll(ctx, model.Caller{}, f.request(model.VariantA), nil, nil)
		require.True(t, first.Success, first.Message)

		second := f.workflow.Enroll(ctx, model.Caller{}, f.request(model.VariantB), nil, nil)
		assert.False(t, second.Success)
		assert.Equal(t, KindConflict, second.Kind)
		assert.Contains(t, second.Message, "004512LA042")
		assert.Len(t, f.db.students, 1)
	})
}

func TestEnrollFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("upload failure stops before create", func(t *testing.T) {
		f := newEnrollFixture(30)
		f.bucket.fail = errors.New("bucket unavailable")

		res := f.workflow.Enroll(ctx, model.Caller{}, f.request(model.VariantA), map[model.DocumentKind]*UploadedFile{model.DocPhoto: pdf("foto.pdf")}, nil)
		assert.False(t, res.Success)
		assert.Equal(t, StageUpload, res.Stage)
		assert.Equal(t, KindBackend, res.Kind)
		assert.Empty(t, f.db.students)
	})

	t.Run("notification failure does not fail enrollment", func(t *testing.T) {
		f := newEnrollFixture(30)
		f.notifier.err = errors.New("smtp down")

		res := f.workflow.Enroll(ctx, model.Caller{}, f.request(model.VariantA), nil, nil)
		assert.True(t, res.Success, res.Message)
		assert.Equal(t, 1, f.notifier.calls)
	})

	t.Run("store failure on create", func(t *testing.T) {
		f := newEnrollFixture(30)
		f.db.fail["students.Create"] = errors.New("connection reset")

		res := f.workflow.Enroll(ctx, model.Caller{}, f.request(model.VariantA), nil, nil)
		assert.False(t, res.Success)
		assert.Equal(t, StageCreate, res.Stage)
		assert.Equal(t, KindBackend, res.Kind)
		assert.Equal(t, 0, f.db.classes[f.classA.ID].Enrolled)
	})
}

func TestEnrollCancelledDoesNotTakeSeat(t *testing.T) {
	f := newEnrollFixture(30)
	req := f.request(model.VariantA)
	req.Status = model.StatusCancelled

	res := f.workflow.Enroll(context.Background(), adminCaller, req, nil, nil)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, model.StatusCancelled, res.Student.Status)
	assert.Equal(t, 0.0, res.Student.AmountPaid)
	assert.Equal(t, 0, f.db.classes[f.classA.ID].Enrolled)
	assert.NotContains(t, f.db.writes(), "classes.IncrementEnrolled")
}
