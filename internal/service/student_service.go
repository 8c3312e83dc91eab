package service

import (
	"context"
	"strings"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StudentService handles admin reads and edits of students.
type StudentService struct {
	repo    StudentStore
	classes ClassStore
	pairs   ClassPairStore
	courses CourseStore
	tuition TuitionSource
	audit   AuditSink
	view    PairState
	log     zerolog.Logger
}

// NewStudentService creates a new StudentService. view may be nil.
func NewStudentService(
	repo StudentStore,
	classes ClassStore,
	pairs ClassPairStore,
	courses CourseStore,
	tuition TuitionSource,
	audit AuditSink,
	view PairState,
	log zerolog.Logger,
) *StudentService {
	if audit == nil {
		audit = nopAudit{}
	}
	if view == nil {
		view = NopPairState{}
	}
	return &StudentService{
		repo:    repo,
		classes: classes,
		pairs:   pairs,
		courses: courses,
		tuition: tuition,
		audit:   audit,
		view:    view,
		log:     log.With().Str("component", "student_service").Logger(),
	}
}

// List returns a page of students and the total count.
func (s *StudentService) List(ctx context.Context, filter model.StudentFilter) ([]model.Student, int, error) {
	students, total, err := s.repo.ListPaginated(ctx, filter)
	if err != nil {
		return nil, 0, storeError("student.list", "Aluno", err)
	}
	return students, total, nil
}

// ListAll returns every student matching filter, without paging.
func (s *StudentService) ListAll(ctx context.Context, filter model.StudentFilter) ([]model.Student, error) {
	students, err := s.repo.ListAll(ctx, filter)
	return students, storeError("student.list_all", "Aluno", err)
}

func (s *StudentService) Get(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	student, err := s.repo.GetByID(ctx, id)
	return student, storeError("student.get", "Aluno", err)
}

// IDNumberTaken reports whether a national ID number is already registered.
func (s *StudentService) IDNumberTaken(ctx context.Context, idNumber string) (bool, error) {
	idNumber = strings.TrimSpace(idNumber)
	if idNumber == "" {
		return false, validationError("student.check_bi", "Indique o número do BI.", map[string]string{"numero_bi": "obrigatório"})
	}
	exists, err := s.repo.ExistsByIDNumber(ctx, idNumber)
	return exists, storeError("student.check_bi", "Aluno", err)
}

// Update applies an admin edit. A course change is checked against the
// catalog; a mismatch with the pair's course list is logged, not refused.
func (s *StudentService) Update(ctx context.Context, caller model.Caller, id uuid.UUID, req model.UpdateStudentRequest) (*model.Student, error) {
	const op = "student.update"

	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(op, "Aluno", err)
	}

	fields := model.StudentFields{
		Name:          trimmed(req.Name),
		Email:         trimmed(req.Email),
		Phone:         trimmed(req.Phone),
		IDNumber:      trimmed(req.IDNumber),
		Address:       trimmed(req.Address),
		CourseCode:    trimmed(req.CourseCode),
		Shift:         trimmed(req.Shift),
		Duration:      trimmed(req.Duration),
		PaymentMethod: req.PaymentMethod,
		Status:        req.Status,
	}
	invalid := map[string]string{}
	for field, v := range map[string]*string{"nome": fields.Name, "numero_bi": fields.IDNumber, "telefone": fields.Phone} {
		if v != nil && *v == "" {
			invalid[field] = "obrigatório"
		}
	}
	if req.BirthDate != nil {
		d, err := parseOptionalDate(*req.BirthDate)
		if err != nil {
			invalid["data_nascimento"] = "data inválida"
		}
		fields.BirthDate = d
	}
	if req.StartDate != nil {
		d, err := parseOptionalDate(*req.StartDate)
		if err != nil {
			invalid["data_inicio"] = "data inválida"
		}
		fields.StartDate = d
	}
	if fields.Email != nil && *fields.Email != "" && !emailPattern.MatchString(*fields.Email) {
		invalid["email"] = "formato inválido"
	}
	if len(invalid) > 0 {
		return nil, validationError(op, "Dados do aluno inválidos.", invalid)
	}

	if fields.CourseCode != nil && *fields.CourseCode != before.CourseCode {
		course, err := s.courses.GetByCode(ctx, *fields.CourseCode)
		if err != nil {
			return nil, storeError(op, "Curso", err)
		}
		if !course.Active {
			return nil, newError(KindInactive, op, "O curso "+course.Code+" está inativo.")
		}
	}

	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, storeError(op, "Aluno", err)
	}
	after, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(op, "Aluno", err)
	}

	if fields.Status != nil && (*fields.Status == model.StatusCancelled) != (before.Status == model.StatusCancelled) {
		s.recount(ctx, after.ClassID)
	}
	s.view.Reload(ctx, &after.PairID)
	if after.PairID != before.PairID {
		s.view.Reload(ctx, &before.PairID)
	}
	s.audit.Record(ctx, auditEntry(caller, model.AuditUpdate, model.TableStudents, id.String(), before, after))
	return after, nil
}

// UpdatePayment changes the payment status. The pair view is updated first
// and reverted if the write fails. A confirmed payment without an explicit
// amount is charged the current tuition fee.
func (s *StudentService) UpdatePayment(ctx context.Context, caller model.Caller, id uuid.UUID, req model.UpdatePaymentRequest) (*model.Student, error) {
	const op = "student.update_payment"

	if !req.Status.Valid() {
		return nil, validationError(op, "Estado de pagamento inválido.", map[string]string{"status": "inválido"})
	}
	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(op, "Aluno", err)
	}

	amount := 0.0
	switch {
	case req.AmountPaid != nil:
		amount = *req.AmountPaid
	case req.Status == model.StatusConfirmed:
		amount = s.tuition.TuitionFee(ctx)
	case req.Status == model.StatusCancelled:
		amount = before.AmountPaid
	}
	status := req.Status
	fields := model.StudentFields{Status: &status, AmountPaid: &amount, PaymentMethod: req.PaymentMethod}

	s.view.Apply(before.PairID, func(a *model.ClassPairAggregate) {
		for i := range a.Students {
			if a.Students[i].ID == id {
				a.Students[i].Status = status
			}
		}
	})
	if err := s.repo.Update(ctx, id, fields); err != nil {
		s.view.Revert(ctx, before.PairID)
		return nil, storeError(op, "Aluno", err)
	}
	s.view.Confirm(before.PairID)

	after, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(op, "Aluno", err)
	}
	if (status == model.StatusCancelled) != (before.Status == model.StatusCancelled) {
		s.recount(ctx, after.ClassID)
		s.view.Reload(ctx, &after.PairID)
	}
	s.audit.Record(ctx, auditEntry(caller, model.AuditUpdate, model.TableStudents, id.String(), before, after))
	return after, nil
}

// Delete removes a student and recounts its class.
func (s *StudentService) Delete(ctx context.Context, caller model.Caller, id uuid.UUID) error {
	const op = "student.delete"

	student, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return storeError(op, "Aluno", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(op, "Aluno", err)
	}
	s.recount(ctx, student.ClassID)
	s.view.Reload(ctx, &student.PairID)
	s.audit.Record(ctx, auditEntry(caller, model.AuditDelete, model.TableStudents, id.String(), student, nil))
	return nil
}

// CheckConsistency loads a student with its pair and runs the consistency
// checker against the current catalog.
func (s *StudentService) CheckConsistency(ctx context.Context, id uuid.UUID) (*model.Student, model.ConsistencyResult, error) {
	const op = "student.consistency"

	student, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, model.ConsistencyResult{}, storeError(op, "Aluno", err)
	}
	pair, err := s.pairs.GetByID(ctx, student.PairID)
	if err != nil {
		return nil, model.ConsistencyResult{}, storeError(op, "Par de turmas", err)
	}
	courses, err := s.courses.List(ctx, model.CourseFilter{})
	if err != nil {
		return nil, model.ConsistencyResult{}, storeError(op, "Curso", err)
	}

	result := CheckStudentDataConsistency(student, pair, NewCourseCatalog(courses))
	LogConsistency(s.log, op, result)
	return student, result, nil
}

// recount refreshes a class counter. Failures only drift the cache.
func (s *StudentService) recount(ctx context.Context, classID uuid.UUID) {
	if err := s.classes.RecountEnrolled(ctx, classID); err != nil {
		s.log.Error().Err(err).Str("class_id", classID.String()).Msg("failed to recount class")
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
