package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Enrollment stages, in pipeline order.
const (
	StageValidation = "validation"
	StageClassPair  = "class_pair"
	StageUpload     = "upload"
	StageCreate     = "create"
	StageNotify     = "notify"
	StageDone       = "done"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var allowedDocumentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// UploadedFile is one document attached to an enrollment.
type UploadedFile struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Progress is reported between pipeline steps. Percent never decreases.
type Progress struct {
	Stage   string `json:"stage"`
	Label   string `json:"label"`
	Percent int    `json:"percent"`
}

// ProgressFunc receives progress updates. It is called synchronously.
type ProgressFunc func(Progress)

// EnrollmentResult is the outcome of an enrollment. Failures carry a user
// facing message and the stage that failed.
type EnrollmentResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Stage   string         `json:"stage"`
	Kind    Kind           `json:"kind,omitempty"`
	Student *model.Student `json:"aluno,omitempty"`
}

// EnrollmentWorkflow runs the enrollment pipeline: validation, class pair and
// capacity checks, document upload, record creation and notification.
type EnrollmentWorkflow struct {
	pairs        ClassPairStore
	classes      ClassStore
	students     StudentStore
	courses      CourseStore
	bucket       Bucket
	notifier     DocumentNotifier
	tuition      TuitionSource
	audit        AuditSink
	view         PairState
	maxFileBytes int64
	now          func() time.Time
	log          zerolog.Logger
}

// EnrollmentDeps groups the collaborators of EnrollmentWorkflow.
type EnrollmentDeps struct {
	Pairs        ClassPairStore
	Classes      ClassStore
	Students     StudentStore
	Courses      CourseStore
	Bucket       Bucket
	Notifier     DocumentNotifier
	Tuition      TuitionSource
	Audit        AuditSink
	View         PairState
	MaxFileBytes int64
}

// NewEnrollmentWorkflow creates a new EnrollmentWorkflow.
func NewEnrollmentWorkflow(deps EnrollmentDeps, log zerolog.Logger) *EnrollmentWorkflow {
	audit := deps.Audit
	if audit == nil {
		audit = nopAudit{}
	}
	var view PairState = NopPairState{}
	if deps.View != nil {
		view = deps.View
	}
	return &EnrollmentWorkflow{
		pairs:        deps.Pairs,
		classes:      deps.Classes,
		students:     deps.Students,
		courses:      deps.Courses,
		bucket:       deps.Bucket,
		notifier:     deps.Notifier,
		tuition:      deps.Tuition,
		audit:        audit,
		view:         view,
		maxFileBytes: deps.MaxFileBytes,
		now:          time.Now,
		log:          log.With().Str("component", "enrollment_workflow").Logger(),
	}
}

// enrollmentInput is the validated form.
type enrollmentInput struct {
	pairID    uuid.UUID
	variant   model.Variant
	status    model.StudentStatus
	birthDate *time.Time
	startDate *time.Time
}

// Enroll runs the pipeline for one student. It never returns an error or
// panics; every failure is reported through the result.
func (w *EnrollmentWorkflow) Enroll(
	ctx context.Context,
	caller model.Caller,
	req model.EnrollmentRequest,
	files map[model.DocumentKind]*UploadedFile,
	progress ProgressFunc,
) (result EnrollmentResult) {
	if progress == nil {
		progress = func(Progress) {}
	}
	stage := StageValidation
	report := func(s, label string, percent int) {
		stage = s
		progress(Progress{Stage: s, Label: label, Percent: percent})
	}
	fail := func(err error) EnrollmentResult {
		w.log.Warn().Err(err).Str("stage", stage).Str("numero_bi", req.IDNumber).Msg("enrollment failed")
		return EnrollmentResult{Success: false, Message: MessageOf(err), Stage: stage, Kind: KindOf(err)}
	}
	defer func() {
		if r := recover(); r != nil {
			w.log.Error().Interface("panic", r).Str("stage", stage).Msg("enrollment aborted")
			result = EnrollmentResult{Success: false, Message: "Ocorreu um erro inesperado durante a inscrição.", Stage: stage, Kind: KindBackend}
		}
	}()

	// 1. Field validation.
	report(StageValidation, "A validar os dados...", 0)
	in, err := w.validate(req, files)
	if err != nil {
		return fail(err)
	}
	report(StageValidation, "Dados validados", 10)

	// 2. Class pair and capacity.
	report(StageClassPair, "A verificar a turma...", 10)
	pair, class, course, err := w.checkPlacement(ctx, req, in)
	if err != nil {
		return fail(err)
	}
	report(StageClassPair, "Turma disponível", 20)

	// 3. Documents.
	report(StageUpload, "A carregar documentos...", 20)
	student := &model.Student{
		Name:          strings.TrimSpace(req.Name),
		Phone:         strings.TrimSpace(req.Phone),
		IDNumber:      strings.TrimSpace(req.IDNumber),
		BirthDate:     in.birthDate,
		CourseCode:    course.Code,
		PairID:        pair.ID,
		ClassID:       class.ID,
		Shift:         strings.TrimSpace(req.Shift),
		Duration:      strings.TrimSpace(req.Duration),
		StartDate:     in.startDate,
		PaymentMethod: req.PaymentMethod,
		Status:        in.status,
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		student.Email = &email
	}
	if addr := strings.TrimSpace(req.Address); addr != "" {
		student.Address = &addr
	}
	if student.Shift == "" {
		student.Shift = pair.Period.Label()
	}
	if !caller.Anonymous() {
		id := caller.UserID
		student.CreatedBy = &id
	}

	uploaded, err := w.uploadDocuments(ctx, caller, files, student, report)
	if err != nil {
		if len(uploaded) > 0 {
			w.log.Error().Err(err).Strs("paths", uploaded).Msg("partial_completion: documents uploaded before failure")
		}
		return fail(err)
	}
	report(StageUpload, "Documentos carregados", 60)

	// 4. Student record.
	report(StageCreate, "A registar o aluno...", 60)
	if in.status == model.StatusConfirmed {
		student.AmountPaid = w.tuition.TuitionFee(ctx)
	}
	if err := w.students.Create(ctx, student); err != nil {
		err = storeError("enrollment.create", "Aluno", err)
		if KindOf(err) == KindConflict {
			err = newError(KindConflict, "enrollment.create", "Já existe um aluno com o número de BI "+student.IDNumber+".")
		}
		if len(uploaded) > 0 {
			w.log.Error().Err(err).Strs("paths", uploaded).Msg("partial_completion: documents stored without student")
		}
		return fail(err)
	}
	// Cancelled students do not hold a seat.
	if in.status != model.StatusCancelled {
		if err := w.classes.IncrementEnrolled(ctx, class.ID, 1); err != nil {
			w.log.Error().Err(err).Str("class_id", class.ID.String()).Msg("failed to increment enrolled count")
		}
	}
	w.view.Reload(ctx, &pair.ID)
	w.audit.Record(ctx, auditEntry(caller, model.AuditCreate, model.TableStudents, student.ID.String(), nil, student))
	LogConsistency(w.log, "enrollment", CheckStudentDataConsistency(student, pair, NewCourseCatalog([]model.Course{*course})))
	report(StageCreate, "Aluno registado", 80)

	// 5. Notification.
	report(StageNotify, "A enviar documentos por email...", 80)
	if w.notifier != nil {
		if err := w.notifier.NotifyEnrollment(ctx, student, pair.Name); err != nil {
			w.log.Warn().Err(err).Str("student_id", student.ID.String()).Msg("enrollment notification failed")
		}
	}
	report(StageDone, "Inscrição concluída", 100)

	return EnrollmentResult{
		Success: true,
		Message: fmt.Sprintf("Inscrição realizada com sucesso! Número de estudante: %s", student.StudentNumber),
		Stage:   StageDone,
		Student: student,
	}
}

func (w *EnrollmentWorkflow) validate(req model.EnrollmentRequest, files map[model.DocumentKind]*UploadedFile) (*enrollmentInput, error) {
	const op = "enrollment.validate"

	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"nome", req.Name},
		{"telefone", req.Phone},
		{"numero_bi", req.IDNumber},
		{"curso_codigo", req.CourseCode},
		{"turma_selecionada", req.Selection},
		{"metodo_pagamento", string(req.PaymentMethod)},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		fields := make(map[string]string, len(missing))
		for _, m := range missing {
			fields[m] = "obrigatório"
		}
		return nil, validationError(op, "Preencha os campos obrigatórios: "+strings.Join(missing, ", ")+".", fields)
	}

	in := &enrollmentInput{status: req.Status}
	fields := map[string]string{}
	var problems []string
	invalid := func(field, msg string) {
		fields[field] = msg
		problems = append(problems, msg)
	}

	if email := strings.TrimSpace(req.Email); email != "" && !emailPattern.MatchString(email) {
		invalid("email", "O email indicado não é válido.")
	}
	if !req.PaymentMethod.Valid() {
		invalid("metodo_pagamento", "Método de pagamento inválido.")
	}
	if in.status == "" {
		in.status = model.StatusEnrolled
	}
	if !in.status.Valid() {
		invalid("status", "Estado da inscrição inválido.")
	}
	if d, err := parseOptionalDate(req.BirthDate); err != nil {
		invalid("data_nascimento", "Data de nascimento inválida.")
	} else {
		in.birthDate = d
	}
	if d, err := parseOptionalDate(req.StartDate); err != nil {
		invalid("data_inicio", "Data de início inválida.")
	} else {
		in.startDate = d
	}

	pairID, variant, err := ParseSelection(req.Selection)
	if err != nil {
		invalid("turma_selecionada", "Turma selecionada inválida.")
	}
	in.pairID, in.variant = pairID, variant

	for kind, f := range files {
		if f == nil {
			continue
		}
		if kind.Label() == string(kind) {
			invalid(string(kind), fmt.Sprintf("Documento desconhecido: %s.", kind))
			continue
		}
		if w.maxFileBytes > 0 && f.Size > w.maxFileBytes {
			invalid(string(kind), fmt.Sprintf("O ficheiro %s excede o tamanho máximo de %d MB.", kind.Label(), w.maxFileBytes/(1024*1024)))
			continue
		}
		if !allowedDocumentTypes[strings.ToLower(f.ContentType)] {
			invalid(string(kind), fmt.Sprintf("O ficheiro %s deve ser uma imagem ou PDF.", kind.Label()))
		}
	}

	if len(problems) > 0 {
		return nil, validationError(op, strings.Join(problems, " "), fields)
	}
	return in, nil
}

// checkPlacement resolves the pair, class and course and checks capacity.
func (w *EnrollmentWorkflow) checkPlacement(ctx context.Context, req model.EnrollmentRequest, in *enrollmentInput) (*model.ClassPair, *model.Class, *model.Course, error) {
	const op = "enrollment.placement"

	pair, err := w.pairs.GetByID(ctx, in.pairID)
	if err != nil {
		return nil, nil, nil, storeError(op, "Par de turmas", err)
	}
	if !pair.Active {
		return nil, nil, nil, newError(KindInactive, op, fmt.Sprintf("O par de turmas %q está inativo.", pair.Name))
	}

	class, err := w.classes.GetByPairAndVariant(ctx, pair.ID, in.variant)
	if err != nil {
		return nil, nil, nil, storeError(op, "Turma", err)
	}
	if class.Full() {
		return nil, nil, nil, newError(KindConflict, op, fmt.Sprintf(
			"A turma %s do %s está cheia (%d/%d).", class.Variant, pair.Name, class.Enrolled, class.Capacity,
		))
	}

	course, err := w.courses.GetByCode(ctx, strings.TrimSpace(req.CourseCode))
	if err != nil {
		return nil, nil, nil, storeError(op, "Curso", err)
	}
	if !course.Active {
		return nil, nil, nil, newError(KindInactive, op, fmt.Sprintf("O curso %q está inativo.", course.Code))
	}

	exists, err := w.students.ExistsByIDNumber(ctx, strings.TrimSpace(req.IDNumber))
	if err != nil {
		return nil, nil, nil, storeError(op, "Aluno", err)
	}
	if exists {
		return nil, nil, nil, newError(KindConflict, op, "Já existe um aluno com o número de BI "+strings.TrimSpace(req.IDNumber)+".")
	}
	return pair, class, course, nil
}

// uploadDocuments stores each supplied document and records its path on
// student. It stops at the first failure and returns the paths stored so far.
func (w *EnrollmentWorkflow) uploadDocuments(
	ctx context.Context,
	caller model.Caller,
	files map[model.DocumentKind]*UploadedFile,
	student *model.Student,
	report func(string, string, int),
) ([]string, error) {
	var kinds []model.DocumentKind
	for _, kind := range model.DocumentKinds {
		if f := files[kind]; f != nil {
			kinds = append(kinds, kind)
		}
	}

	owner := "anonimo"
	if !caller.Anonymous() {
		owner = caller.UserID.String()
	}

	uploaded := make([]string, 0, len(kinds))
	for i, kind := range kinds {
		f := files[kind]
		path := DocumentPath(owner, kind, f.Filename, w.now())
		if err := w.bucket.Upload(ctx, path, f.ContentType, f.Content, f.Size); err != nil {
			return uploaded, &Error{
				Kind:    KindBackend,
				Op:      "enrollment.upload",
				Message: fmt.Sprintf("Erro ao carregar o ficheiro %s: %v", kind.Label(), err),
				Err:     err,
			}
		}
		student.SetDocument(kind, path)
		uploaded = append(uploaded, path)
		report(StageUpload, kind.Label()+" carregado(a)", 20+40*(i+1)/len(kinds))
	}
	return uploaded, nil
}

// DocumentPath builds the bucket path of an uploaded document:
// <owner>/<unix millis>_<kind><ext>.
func DocumentPath(owner string, kind model.DocumentKind, filename string, at time.Time) string {
	return fmt.Sprintf("%s/%d_%s%s", owner, at.UnixMilli(), kind, strings.ToLower(filepath.Ext(filename)))
}

// ParseSelection splits a "<pairId>:<A|B>" selection key.
func ParseSelection(key string) (uuid.UUID, model.Variant, error) {
	idx := strings.LastIndex(key, ":")
	if idx < 0 {
		return uuid.Nil, "", errors.New("selection key must be <pair>:<variant>")
	}
	id, err := uuid.Parse(strings.TrimSpace(key[:idx]))
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("parse pair id: %w", err)
	}
	v := model.Variant(strings.ToUpper(strings.TrimSpace(key[idx+1:])))
	if !v.Valid() {
		return uuid.Nil, "", fmt.Errorf("unknown variant %q", v)
	}
	return id, v, nil
}

func parseOptionalDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
