package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultDuplicateCapacity is the capacity given to both classes of a
// duplicated pair.
const DefaultDuplicateCapacity = 30

// Confirmer is asked before a cascading delete. dependents is the number of
// students that will be removed with the pair.
type Confirmer func(ctx context.Context, dependents int) bool

// ConfirmWith returns a Confirmer that always answers ok.
func ConfirmWith(ok bool) Confirmer {
	return func(context.Context, int) bool { return ok }
}

// DeleteReport describes what a pair deletion removed, or would remove when
// the confirmation was refused.
type DeleteReport struct {
	PairID   uuid.UUID `json:"turma_pair_id"`
	Students int64     `json:"alunos"`
	Classes  int64     `json:"turmas"`
	Deleted  bool      `json:"eliminado"`
}

// ClassPairWorkflow runs the multi-step class pair operations. Steps are
// independent writes; a failure after the first write is reported as
// KindPartial and the pair view is reloaded from the database.
type ClassPairWorkflow struct {
	pairs    ClassPairStore
	classes  ClassStore
	students StudentStore
	courses  CourseStore
	rooms    *RoomService
	audit    AuditSink
	view     PairState
	log      zerolog.Logger
}

// NewClassPairWorkflow creates a new ClassPairWorkflow. view may be nil.
func NewClassPairWorkflow(
	pairs ClassPairStore,
	classes ClassStore,
	students StudentStore,
	courses CourseStore,
	rooms *RoomService,
	audit AuditSink,
	view PairState,
	log zerolog.Logger,
) *ClassPairWorkflow {
	if audit == nil {
		audit = nopAudit{}
	}
	if view == nil {
		view = NopPairState{}
	}
	return &ClassPairWorkflow{
		pairs:    pairs,
		classes:  classes,
		students: students,
		courses:  courses,
		rooms:    rooms,
		audit:    audit,
		view:     view,
		log:      log.With().Str("component", "class_pair_workflow").Logger(),
	}
}

// List returns the aggregates of every pair.
func (w *ClassPairWorkflow) List(ctx context.Context) ([]model.ClassPairAggregate, error) {
	aggs, err := w.pairs.LoadAggregates(ctx, nil)
	return aggs, storeError("class_pair.list", "Par de turmas", err)
}

// Get returns the aggregate of one pair.
func (w *ClassPairWorkflow) Get(ctx context.Context, id uuid.UUID) (*model.ClassPairAggregate, error) {
	aggs, err := w.pairs.LoadAggregates(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, storeError("class_pair.get", "Par de turmas", err)
	}
	if len(aggs) == 0 {
		return nil, newError(KindNotFound, "class_pair.get", "Par de turmas não encontrado.")
	}
	return &aggs[0], nil
}

// Create creates a pair and its two classes.
func (w *ClassPairWorkflow) Create(ctx context.Context, caller model.Caller, req model.CreateClassPairRequest) (*model.ClassPairAggregate, error) {
	return w.create(ctx, caller, req, false)
}

// Duplicate creates an empty pair in period with generated room codes such
// as "M3-A" and "M3-B".
func (w *ClassPairWorkflow) Duplicate(ctx context.Context, caller model.Caller, period model.Period) (*model.ClassPairAggregate, error) {
	const op = "class_pair.duplicate"

	if !period.Valid() {
		return nil, validationError(op, "Período inválido.", map[string]string{"periodo": "inválido"})
	}
	n, err := w.pairs.CountByPeriod(ctx, period)
	if err != nil {
		return nil, storeError(op, "Par de turmas", err)
	}
	ordinal := n + 1
	req := model.CreateClassPairRequest{
		Period:  period,
		Courses: []string{},
		ClassA:  model.ClassSpec{RoomCode: fmt.Sprintf("%s%d-A", period.RoomPrefix(), ordinal), Capacity: DefaultDuplicateCapacity},
		ClassB:  model.ClassSpec{RoomCode: fmt.Sprintf("%s%d-B", period.RoomPrefix(), ordinal), Capacity: DefaultDuplicateCapacity},
	}
	return w.create(ctx, caller, req, true)
}

func (w *ClassPairWorkflow) create(ctx context.Context, caller model.Caller, req model.CreateClassPairRequest, allowNoCourses bool) (*model.ClassPairAggregate, error) {
	const op = "class_pair.create"

	// Validation happens before any write.
	fields := map[string]string{}
	if !req.Period.Valid() {
		fields["periodo"] = "inválido"
	}
	codeA := strings.TrimSpace(req.ClassA.RoomCode)
	codeB := strings.TrimSpace(req.ClassB.RoomCode)
	if codeA == "" {
		fields["turma_a.sala_codigo"] = "obrigatório"
	}
	if codeB == "" {
		fields["turma_b.sala_codigo"] = "obrigatório"
	}
	if req.ClassA.Capacity <= 0 {
		fields["turma_a.capacidade"] = "deve ser maior que zero"
	}
	if req.ClassB.Capacity <= 0 {
		fields["turma_b.capacidade"] = "deve ser maior que zero"
	}
	codes := normalizeCodes(req.Courses)
	if len(codes) == 0 && !allowNoCourses {
		fields["cursos"] = "selecione pelo menos um curso"
	}
	if len(fields) > 0 {
		return nil, validationError(op, "Dados do par de turmas inválidos.", fields)
	}
	if strings.EqualFold(codeA, codeB) {
		return nil, validationError(op, "As turmas A e B não podem usar a mesma sala.",
			map[string]string{"turma_b.sala_codigo": "igual à sala da turma A"})
	}

	courses, err := w.resolveCourses(ctx, op, codes)
	if err != nil {
		return nil, err
	}

	n, err := w.pairs.CountByPeriod(ctx, req.Period)
	if err != nil {
		return nil, storeError(op, "Par de turmas", err)
	}

	schedule := model.WeeklySchedule{}
	if len(courses) > 0 {
		schedule = courses[0].Schedule.Clone()
	}
	pair := &model.ClassPair{
		Name:              fmt.Sprintf("Par %d - %s", n+1, req.Period.Label()),
		Period:            req.Period,
		PeriodRange:       req.Period.TimeRange(),
		Courses:           codes,
		CommonDisciplines: CommonDisciplines(courses),
		Schedule:          schedule,
		Active:            true,
	}

	roomA, err := w.rooms.GetOrCreateByCode(ctx, caller, codeA, req.ClassA.Capacity)
	if err != nil {
		return nil, err
	}
	roomB, err := w.rooms.GetOrCreateByCode(ctx, caller, codeB, req.ClassB.Capacity)
	if err != nil {
		return nil, err
	}
	if roomA.ID == roomB.ID {
		return nil, validationError(op, "As turmas A e B não podem usar a mesma sala.", nil)
	}

	if err := w.pairs.Create(ctx, pair); err != nil {
		return nil, storeError(op, "Par de turmas", err)
	}

	agg := &model.ClassPairAggregate{ClassPair: *pair, Students: []model.StudentSummary{}}
	for _, spec := range []struct {
		variant  model.Variant
		room     *model.Room
		capacity int
	}{
		{model.VariantA, roomA, req.ClassA.Capacity},
		{model.VariantB, roomB, req.ClassB.Capacity},
	} {
		class := &model.Class{
			PairID:   pair.ID,
			Variant:  spec.variant,
			RoomID:   spec.room.ID,
			Capacity: spec.capacity,
			Schedule: pair.Schedule.Clone(),
		}
		if err := w.classes.Create(ctx, class); err != nil {
			return nil, w.partial(ctx, op, pair.ID, storeError(op, "Turma "+string(spec.variant), err))
		}
		class.Room = &model.RoomRef{Code: spec.room.Code, Capacity: spec.room.Capacity, Type: spec.room.Type}
		if spec.variant == model.VariantA {
			agg.ClassA = class
		} else {
			agg.ClassB = class
		}
	}

	w.view.Reload(ctx, &pair.ID)
	w.log.Info().Str("pair_id", pair.ID.String()).Str("name", pair.Name).Msg("class pair created")
	w.audit.Record(ctx, auditEntry(caller, model.AuditCreate, model.TableClassPairs, pair.ID.String(), nil, agg))
	return agg, nil
}

// Update applies a partial update. Class changes are written first, then the
// pair fields.
func (w *ClassPairWorkflow) Update(ctx context.Context, caller model.Caller, id uuid.UUID, req model.UpdateClassPairRequest) (*model.ClassPairAggregate, error) {
	const op = "class_pair.update"

	before, err := w.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if before.ClassA == nil || before.ClassB == nil {
		return nil, newError(KindNotFound, op, "O par de turmas não tem as turmas A e B.")
	}

	fields := map[string]string{}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		fields["nome"] = "obrigatório"
	}
	if req.Period != nil && !req.Period.Valid() {
		fields["periodo"] = "inválido"
	}
	checkSpec := func(prefix string, spec *model.ClassSpec) {
		if spec == nil {
			return
		}
		if strings.TrimSpace(spec.RoomCode) == "" {
			fields[prefix+".sala_codigo"] = "obrigatório"
		}
		if spec.Capacity <= 0 {
			fields[prefix+".capacidade"] = "deve ser maior que zero"
		}
	}
	checkSpec("turma_a", req.ClassA)
	checkSpec("turma_b", req.ClassB)
	if len(fields) > 0 {
		return nil, validationError(op, "Dados do par de turmas inválidos.", fields)
	}

	finalA := roomCodeOf(before.ClassA, req.ClassA)
	finalB := roomCodeOf(before.ClassB, req.ClassB)
	if finalA != "" && strings.EqualFold(finalA, finalB) {
		return nil, validationError(op, "As turmas A e B não podem usar a mesma sala.",
			map[string]string{"turma_b.sala_codigo": "igual à sala da turma A"})
	}

	var pairFields model.ClassPairFields
	if req.Courses != nil {
		codes := normalizeCodes(req.Courses)
		courses, err := w.resolveCourses(ctx, op, codes)
		if err != nil {
			return nil, err
		}
		pairFields.Courses = codes
		pairFields.CommonDisciplines = CommonDisciplines(courses)
		if len(courses) > 0 {
			pairFields.Schedule = courses[0].Schedule.Clone()
		}
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) != before.Name {
		name := strings.TrimSpace(*req.Name)
		pairFields.Name = &name
	}
	if req.Period != nil && *req.Period != before.Period {
		period := *req.Period
		periodRange := period.TimeRange()
		pairFields.Period = &period
		pairFields.PeriodRange = &periodRange
	}
	if req.Active != nil && *req.Active != before.Active {
		pairFields.Active = req.Active
	}

	wrote := false
	for _, target := range []struct {
		class *model.Class
		spec  *model.ClassSpec
	}{
		{before.ClassA, req.ClassA},
		{before.ClassB, req.ClassB},
	} {
		classFields, err := w.classChanges(ctx, caller, target.class, target.spec)
		if err != nil {
			if wrote {
				return nil, w.partial(ctx, op, id, err)
			}
			return nil, err
		}
		if pairFields.Schedule != nil {
			classFields.Schedule = pairFields.Schedule.Clone()
		}
		if classFields.Empty() {
			continue
		}
		if err := w.classes.Update(ctx, target.class.ID, classFields); err != nil {
			err = storeError(op, "Turma "+string(target.class.Variant), err)
			if wrote {
				return nil, w.partial(ctx, op, id, err)
			}
			return nil, err
		}
		wrote = true
	}

	if !pairFields.Empty() {
		if err := w.pairs.Update(ctx, id, pairFields); err != nil {
			err = storeError(op, "Par de turmas", err)
			if wrote {
				return nil, w.partial(ctx, op, id, err)
			}
			return nil, err
		}
	}

	after, err := w.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	w.view.Reload(ctx, &id)
	w.audit.Record(ctx, auditEntry(caller, model.AuditUpdate, model.TableClassPairs, id.String(), before, after))
	return after, nil
}

// classChanges resolves the room of spec and returns the class fields that
// differ from class. A nil spec yields no changes.
func (w *ClassPairWorkflow) classChanges(ctx context.Context, caller model.Caller, class *model.Class, spec *model.ClassSpec) (model.ClassFields, error) {
	var fields model.ClassFields
	if spec == nil {
		return fields, nil
	}
	room, err := w.rooms.GetOrCreateByCode(ctx, caller, spec.RoomCode, spec.Capacity)
	if err != nil {
		return fields, err
	}
	if room.ID != class.RoomID {
		fields.RoomID = &room.ID
	}
	if spec.Capacity != class.Capacity {
		capacity := spec.Capacity
		fields.Capacity = &capacity
	}
	return fields, nil
}

// Delete removes a pair with its students and classes, in that order. When
// the pair has students, confirm is asked first; a refusal returns a
// KindCancelled error and a report of what would have been removed.
func (w *ClassPairWorkflow) Delete(ctx context.Context, caller model.Caller, id uuid.UUID, confirm Confirmer) (*DeleteReport, error) {
	const op = "class_pair.delete"

	pair, err := w.pairs.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(op, "Par de turmas", err)
	}
	dependents, err := w.students.CountByPair(ctx, id)
	if err != nil {
		return nil, storeError(op, "Par de turmas", err)
	}

	report := &DeleteReport{PairID: id, Students: int64(dependents)}
	if dependents > 0 && (confirm == nil || !confirm(ctx, dependents)) {
		return report, &Error{
			Kind: KindCancelled,
			Op:   op,
			Message: fmt.Sprintf(
				"O par %q tem %d aluno(s) inscrito(s) que também serão eliminados. Confirme a eliminação.",
				pair.Name, dependents,
			),
		}
	}

	removedStudents, err := w.students.DeleteByPair(ctx, id)
	if err != nil {
		w.view.Reload(ctx, nil)
		return nil, storeError(op, "Aluno", err)
	}
	report.Students = removedStudents

	removedClasses, err := w.classes.DeleteByPair(ctx, id)
	if err != nil {
		err = storeError(op, "Turma", err)
		if removedStudents > 0 {
			return nil, w.partial(ctx, op, id, err)
		}
		w.view.Reload(ctx, nil)
		return nil, err
	}
	report.Classes = removedClasses

	if err := w.pairs.Delete(ctx, id); err != nil {
		err = storeError(op, "Par de turmas", err)
		if removedStudents > 0 || removedClasses > 0 {
			return nil, w.partial(ctx, op, id, err)
		}
		w.view.Reload(ctx, nil)
		return nil, err
	}
	report.Deleted = true
	w.view.Reload(ctx, &id)

	w.log.Info().
		Str("pair_id", id.String()).
		Int64("students", removedStudents).
		Int64("classes", removedClasses).
		Msg("class pair deleted")
	w.audit.Record(ctx, auditEntry(caller, model.AuditDelete, model.TableClassPairs, id.String(), pair, report))
	return report, nil
}

// ToggleActive flips the active flag. The cached view is changed first and
// reverted when the write fails.
func (w *ClassPairWorkflow) ToggleActive(ctx context.Context, caller model.Caller, id uuid.UUID) (*model.ClassPair, error) {
	const op = "class_pair.toggle_active"

	pair, err := w.pairs.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(op, "Par de turmas", err)
	}
	before := *pair
	next := !pair.Active

	cached := w.view.Apply(id, func(a *model.ClassPairAggregate) { a.Active = next })
	if err := w.pairs.Update(ctx, id, model.ClassPairFields{Active: &next}); err != nil {
		w.view.Revert(ctx, id)
		return nil, storeError(op, "Par de turmas", err)
	}
	if cached {
		w.view.Confirm(id)
	} else {
		w.view.Reload(ctx, &id)
	}

	pair.Active = next
	w.audit.Record(ctx, auditEntry(caller, model.AuditUpdate, model.TableClassPairs, id.String(), before, pair))
	return pair, nil
}

// partial logs a partially applied operation, reloads the pair view and
// wraps cause as KindPartial.
func (w *ClassPairWorkflow) partial(ctx context.Context, op string, pairID uuid.UUID, cause error) error {
	w.log.Error().
		Err(cause).
		Str("op", op).
		Str("pair_id", pairID.String()).
		Msg("partial_completion")
	w.view.Reload(ctx, &pairID)
	return partialError(op, "A operação foi aplicada apenas em parte. "+MessageOf(cause), cause)
}

// resolveCourses loads courses by code in the given order. Missing and
// inactive courses are rejected.
func (w *ClassPairWorkflow) resolveCourses(ctx context.Context, op string, codes []string) ([]model.Course, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	found, err := w.courses.ListByCodes(ctx, codes)
	if err != nil {
		return nil, storeError(op, "Curso", err)
	}
	byCode := NewCourseCatalog(found)

	var missing, inactive []string
	ordered := make([]model.Course, 0, len(codes))
	for _, code := range codes {
		c, ok := byCode[code]
		switch {
		case !ok:
			missing = append(missing, code)
		case !c.Active:
			inactive = append(inactive, code)
		default:
			ordered = append(ordered, c)
		}
	}
	if len(missing) > 0 {
		return nil, newError(KindNotFound, op, "Curso(s) não encontrado(s): "+strings.Join(missing, ", ")+".")
	}
	if len(inactive) > 0 {
		return nil, newError(KindInactive, op, "Curso(s) inativo(s): "+strings.Join(inactive, ", ")+".")
	}
	return ordered, nil
}

// normalizeCodes trims and de-duplicates course codes, keeping order.
func normalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func roomCodeOf(class *model.Class, spec *model.ClassSpec) string {
	if spec != nil {
		return strings.TrimSpace(spec.RoomCode)
	}
	if class.Room != nil {
		return class.Room.Code
	}
	return ""
}
