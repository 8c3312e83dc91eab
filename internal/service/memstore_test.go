package service

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/associacao-ensino/inscricoes-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var testLog = zerolog.Nop()

// memDB backs the in-memory stores. Every store call is appended to ops and
// fails with fail[op] when set.
type memDB struct {
	mu       sync.Mutex
	ops      []string
	fail     map[string]error
	seq      int
	courses  map[uuid.UUID]model.Course
	rooms    map[uuid.UUID]model.Room
	classes  map[uuid.UUID]model.Class
	pairs    map[uuid.UUID]model.ClassPair
	students map[uuid.UUID]model.Student
}

func newMemDB() *memDB {
	return &memDB{
		fail:     map[string]error{},
		courses:  map[uuid.UUID]model.Course{},
		rooms:    map[uuid.UUID]model.Room{},
		classes:  map[uuid.UUID]model.Class{},
		pairs:    map[uuid.UUID]model.ClassPair{},
		students: map[uuid.UUID]model.Student{},
	}
}

func (db *memDB) record(op string) error {
	db.ops = append(db.ops, op)
	return db.fail[op]
}

// writes returns the recorded ops that mutate state.
func (db *memDB) writes() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []string
	for _, op := range db.ops {
		switch op {
		case "courses.Create", "courses.Update", "courses.Delete",
			"rooms.Create", "rooms.Update", "rooms.Delete",
			"classes.Create", "classes.Update", "classes.IncrementEnrolled", "classes.RecountEnrolled",
			"classes.Delete", "classes.DeleteByPair",
			"pairs.Create", "pairs.Update", "pairs.Delete",
			"students.Create", "students.Update", "students.Delete", "students.DeleteByPair":
			out = append(out, op)
		}
	}
	return out
}

func (db *memDB) resetOps() {
	db.mu.Lock()
	db.ops = nil
	db.mu.Unlock()
}

func (db *memDB) stores() (*memCourses, *memRooms, *memClasses, *memPairs, *memStudents) {
	return &memCourses{db}, &memRooms{db}, &memClasses{db}, &memPairs{db}, &memStudents{db}
}

// ─── Courses ───────────────────────────────────────────────────────────

type memCourses struct{ db *memDB }

func (s *memCourses) List(ctx context.Context, filter model.CourseFilter) ([]model.Course, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("courses.List"); err != nil {
		return nil, err
	}
	out := make([]model.Course, 0, len(s.db.courses))
	for _, c := range s.db.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *memCourses) ListByCodes(ctx context.Context, codes []string) ([]model.Course, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("courses.ListByCodes"); err != nil {
		return nil, err
	}
	var out []model.Course
	for _, c := range s.db.courses {
		if slices.Contains(codes, c.Code) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memCourses) GetByID(ctx context.Context, id uuid.UUID) (*model.Course, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("courses.GetByID"); err != nil {
		return nil, err
	}
	c, ok := s.db.courses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (s *memCourses) GetByCode(ctx context.Context, code string) (*model.Course, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("courses.GetByCode"); err != nil {
		return nil, err
	}
	for _, c := range s.db.courses {
		if c.Code == code {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memCourses) Create(ctx context.Context, course *model.Course) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("courses.Create"); err != nil {
		return err
	}
	for _, c := range s.db.courses {
		if c.Code == course.Code {
			return fmt.Errorf("%w: codigo", repository.ErrDuplicate)
		}
	}
	course.ID = uuid.New()
	s.db.courses[course.ID] = *course
	return nil
}

func (s *memCourses) Update(ctx context.Context, course *model.Course) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("courses.Update"); err != nil {
		return err
	}
	if _, ok := s.db.courses[course.ID]; !ok {
		return repository.ErrNotFound
	}
	s.db.courses[course.ID] = *course
	return nil
}

func (s *memCourses) Delete(ctx context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("courses.Delete"); err != nil {
		return err
	}
	delete(s.db.courses, id)
	return nil
}

// ─── Rooms ─────────────────────────────────────────────────────────────

type memRooms struct{ db *memDB }

func (s *memRooms) List(ctx context.Context, filter model.RoomFilter) ([]model.Room, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]model.Room, 0, len(s.db.rooms))
	for _, r := range s.db.rooms {
		out = append(out, r)
	}
	return out, s.db.record("rooms.List")
}

func (s *memRooms) GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("rooms.GetByID"); err != nil {
		return nil, err
	}
	r, ok := s.db.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (s *memRooms) GetByCode(ctx context.Context, code string) (*model.Room, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("rooms.GetByCode"); err != nil {
		return nil, err
	}
	for _, r := range s.db.rooms {
		if r.Code == code {
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memRooms) Create(ctx context.Context, rm *model.Room) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("rooms.Create"); err != nil {
		return err
	}
	for _, r := range s.db.rooms {
		if r.Code == rm.Code {
			return fmt.Errorf("%w: codigo", repository.ErrDuplicate)
		}
	}
	rm.ID = uuid.New()
	s.db.rooms[rm.ID] = *rm
	return nil
}

func (s *memRooms) Update(ctx context.Context, rm *model.Room) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("rooms.Update"); err != nil {
		return err
	}
	s.db.rooms[rm.ID] = *rm
	return nil
}

func (s *memRooms) Delete(ctx context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("rooms.Delete"); err != nil {
		return err
	}
	delete(s.db.rooms, id)
	return nil
}

// ─── Classes ───────────────────────────────────────────────────────────

type memClasses struct{ db *memDB }

func (s *memClasses) List(ctx context.Context, filter model.ClassFilter) ([]model.Class, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.Class
	for _, c := range s.db.classes {
		if filter.PairID != nil && c.PairID != *filter.PairID {
			continue
		}
		if filter.Variant != "" && c.Variant != filter.Variant {
			continue
		}
		out = append(out, c)
	}
	return out, s.db.record("classes.List")
}

func (s *memClasses) GetByID(ctx context.Context, id uuid.UUID) (*model.Class, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("classes.GetByID"); err != nil {
		return nil, err
	}
	c, ok := s.db.classes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (s *memClasses) GetByPairAndVariant(ctx context.Context, pairID uuid.UUID, v model.Variant) (*model.Class, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("classes.GetByPairAndVariant"); err != nil {
		return nil, err
	}
	for _, c := range s.db.classes {
		if c.PairID == pairID && c.Variant == v {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memClasses) Create(ctx context.Context, c *model.Class) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("classes.Create"); err != nil {
		return err
	}
	c.ID = uuid.New()
	s.db.classes[c.ID] = *c
	return nil
}

func (s *memClasses) Update(ctx context.Context, id uuid.UUID, f model.ClassFields) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("classes.Update"); err != nil {
		return err
	}
	c, ok := s.db.classes[id]
	if !ok {
		return repository.ErrNotFound
	}
	if f.RoomID != nil {
		c.RoomID = *f.RoomID
	}
	if f.Capacity != nil {
		c.Capacity = *f.Capacity
	}
	if f.Schedule != nil {
		c.Schedule = f.Schedule.Clone()
	}
	s.db.classes[id] = c
	return nil
}

func (s *memClasses) IncrementEnrolled(ctx context.Context, id uuid.UUID, delta int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("classes.IncrementEnrolled"); err != nil {
		return err
	}
	c := s.db.classes[id]
	c.Enrolled += delta
	s.db.classes[id] = c
	return nil
}

func (s *memClasses) RecountEnrolled(ctx context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("classes.RecountEnrolled"); err != nil {
		return err
	}
	c, ok := s.db.classes[id]
	if !ok {
		return repository.ErrNotFound
	}
	n := 0
	for _, st := range s.db.students {
		if st.ClassID == id && st.Status != model.StatusCancelled {
			n++
		}
	}
	c.Enrolled = n
	s.db.classes[id] = c
	return nil
}

func (s *memClasses) Delete(ctx context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("classes.Delete"); err != nil {
		return err
	}
	delete(s.db.classes, id)
	return nil
}

func (s *memClasses) DeleteByPair(ctx context.Context, pairID uuid.UUID) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("classes.DeleteByPair"); err != nil {
		return 0, err
	}
	var n int64
	for id, c := range s.db.classes {
		if c.PairID == pairID {
			delete(s.db.classes, id)
			n++
		}
	}
	return n, nil
}

// ─── Pairs ─────────────────────────────────────────────────────────────

type memPairs struct{ db *memDB }

func (s *memPairs) List(ctx context.Context, ids []uuid.UUID) ([]model.ClassPair, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.ClassPair
	for _, p := range s.db.pairs {
		if ids == nil || slices.Contains(ids, p.ID) {
			out = append(out, p)
		}
	}
	return out, s.db.record("pairs.List")
}

func (s *memPairs) GetByID(ctx context.Context, id uuid.UUID) (*model.ClassPair, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("pairs.GetByID"); err != nil {
		return nil, err
	}
	p, ok := s.db.pairs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s *memPairs) CountByPeriod(ctx context.Context, period model.Period) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("pairs.CountByPeriod"); err != nil {
		return 0, err
	}
	n := 0
	for _, p := range s.db.pairs {
		if p.Period == period {
			n++
		}
	}
	return n, nil
}

func (s *memPairs) Create(ctx context.Context, p *model.ClassPair) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("pairs.Create"); err != nil {
		return err
	}
	p.ID = uuid.New()
	s.db.pairs[p.ID] = *p
	return nil
}

func (s *memPairs) Update(ctx context.Context, id uuid.UUID, f model.ClassPairFields) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("pairs.Update"); err != nil {
		return err
	}
	p, ok := s.db.pairs[id]
	if !ok {
		return repository.ErrNotFound
	}
	if f.Name != nil {
		p.Name = *f.Name
	}
	if f.Period != nil {
		p.Period = *f.Period
	}
	if f.PeriodRange != nil {
		p.PeriodRange = *f.PeriodRange
	}
	if f.Courses != nil {
		p.Courses = f.Courses
	}
	if f.CommonDisciplines != nil {
		p.CommonDisciplines = f.CommonDisciplines
	}
	if f.Schedule != nil {
		p.Schedule = f.Schedule.Clone()
	}
	if f.Active != nil {
		p.Active = *f.Active
	}
	s.db.pairs[id] = p
	return nil
}

func (s *memPairs) Delete(ctx context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("pairs.Delete"); err != nil {
		return err
	}
	if _, ok := s.db.pairs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.pairs, id)
	return nil
}

func (s *memPairs) LoadAggregates(ctx context.Context, ids []uuid.UUID) ([]model.ClassPairAggregate, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("pairs.LoadAggregates"); err != nil {
		return nil, err
	}
	var out []model.ClassPairAggregate
	for _, p := range s.db.pairs {
		if ids != nil && !slices.Contains(ids, p.ID) {
			continue
		}
		agg := model.ClassPairAggregate{ClassPair: p, Students: []model.StudentSummary{}}
		for _, c := range s.db.classes {
			if c.PairID != p.ID {
				continue
			}
			c := c
			if r, ok := s.db.rooms[c.RoomID]; ok {
				c.Room = &model.RoomRef{Code: r.Code, Capacity: r.Capacity, Type: r.Type}
			}
			if c.Variant == model.VariantA {
				agg.ClassA = &c
			} else {
				agg.ClassB = &c
			}
		}
		for _, st := range s.db.students {
			if st.PairID == p.ID {
				agg.Students = append(agg.Students, model.StudentSummary{
					ID: st.ID, Name: st.Name, StudentNumber: st.StudentNumber,
					CourseCode: st.CourseCode, ClassID: st.ClassID, Status: st.Status,
				})
			}
		}
		out = append(out, agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ─── Students ──────────────────────────────────────────────────────────

type memStudents struct{ db *memDB }

func (s *memStudents) ListPaginated(ctx context.Context, filter model.StudentFilter) ([]model.Student, int, error) {
	all, err := s.ListAll(ctx, filter)
	return all, len(all), err
}

func (s *memStudents) ListAll(ctx context.Context, filter model.StudentFilter) ([]model.Student, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.Student
	for _, st := range s.db.students {
		if filter.PairID != nil && st.PairID != *filter.PairID {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentNumber < out[j].StudentNumber })
	return out, s.db.record("students.ListAll")
}

func (s *memStudents) GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("students.GetByID"); err != nil {
		return nil, err
	}
	st, ok := s.db.students[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &st, nil
}

func (s *memStudents) ExistsByIDNumber(ctx context.Context, idNumber string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("students.ExistsByIDNumber"); err != nil {
		return false, err
	}
	for _, st := range s.db.students {
		if st.IDNumber == idNumber {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStudents) CountByPair(ctx context.Context, pairID uuid.UUID) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("students.CountByPair"); err != nil {
		return 0, err
	}
	n := 0
	for _, st := range s.db.students {
		if st.PairID == pairID {
			n++
		}
	}
	return n, nil
}

func (s *memStudents) Create(ctx context.Context, st *model.Student) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("students.Create"); err != nil {
		return err
	}
	for _, other := range s.db.students {
		if other.IDNumber == st.IDNumber {
			return fmt.Errorf("%w: numero_bi", repository.ErrDuplicate)
		}
	}
	s.db.seq++
	st.ID = uuid.New()
	st.StudentNumber = fmt.Sprintf("2026%04d", s.db.seq)
	st.EnrolledAt = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s.db.students[st.ID] = *st
	return nil
}

func (s *memStudents) Update(ctx context.Context, id uuid.UUID, f model.StudentFields) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("students.Update"); err != nil {
		return err
	}
	st, ok := s.db.students[id]
	if !ok {
		return repository.ErrNotFound
	}
	if f.Name != nil {
		st.Name = *f.Name
	}
	if f.CourseCode != nil {
		st.CourseCode = *f.CourseCode
	}
	if f.Status != nil {
		st.Status = *f.Status
	}
	if f.AmountPaid != nil {
		st.AmountPaid = *f.AmountPaid
	}
	if f.PaymentMethod != nil {
		st.PaymentMethod = *f.PaymentMethod
	}
	s.db.students[id] = st
	return nil
}

func (s *memStudents) Delete(ctx context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("students.Delete"); err != nil {
		return err
	}
	delete(s.db.students, id)
	return nil
}

func (s *memStudents) DeleteByPair(ctx context.Context, pairID uuid.UUID) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.record("students.DeleteByPair"); err != nil {
		return 0, err
	}
	var n int64
	for id, st := range s.db.students {
		if st.PairID == pairID {
			delete(s.db.students, id)
			n++
		}
	}
	return n, nil
}

// ─── Collaborators ─────────────────────────────────────────────────────

type memBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    error
}

func newMemBucket() *memBucket { return &memBucket{objects: map[string][]byte{}} }

func (b *memBucket) Upload(ctx context.Context, path, contentType string, body io.Reader, size int64) error {
	if b.fail != nil {
		return b.fail
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.objects[path] = data
	b.mu.Unlock()
	return nil
}

func (b *memBucket) Download(ctx context.Context, path string) ([]byte, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[path]
	if !ok {
		return nil, "", repository.ErrNotFound
	}
	return data, "application/pdf", nil
}

type fixedTuition float64

func (f fixedTuition) TuitionFee(context.Context) float64 { return float64(f) }

type recordingAudit struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, entry model.AuditLog) {
	a.mu.Lock()
	a.entries = append(a.entries, entry)
	a.mu.Unlock()
}

type recordingNotifier struct {
	calls int
	err   error
}

func (n *recordingNotifier) NotifyEnrollment(context.Context, *model.Student, string) error {
	n.calls++
	return n.err
}

// recordingView is a PairState that records its calls.
type recordingView struct {
	mu    sync.Mutex
	calls []string
}

func (v *recordingView) add(call string) {
	v.mu.Lock()
	v.calls = append(v.calls, call)
	v.mu.Unlock()
}

func (v *recordingView) Apply(uuid.UUID, func(*model.ClassPairAggregate)) bool {
	v.add("apply")
	return true
}
func (v *recordingView) Confirm(uuid.UUID)                  { v.add("confirm") }
func (v *recordingView) Revert(context.Context, uuid.UUID)  { v.add("revert") }
func (v *recordingView) Reload(context.Context, *uuid.UUID) { v.add("reload") }

// ─── Fixtures ──────────────────────────────────────────────────────────

var adminCaller = model.Caller{UserID: uuid.MustParse("7d4d7c2e-2b1f-4f57-9a53-4f3f0b9d1a01"), Email: "admin@example.org", Roles: []model.Role{model.RoleAdmin}}

func seedCourse(db *memDB, code string, active bool, disciplines ...string) model.Course {
	c := model.Course{
		ID:          uuid.New(),
		Code:        code,
		Name:        "Curso " + code,
		Group:       model.GroupSaude,
		Disciplines: disciplines,
		Schedule:    model.WeeklySchedule{"segunda": disciplines[0]},
		Active:      active,
	}
	db.courses[c.ID] = c
	return c
}

// seedPair stores a pair with classes A and B of the given capacity.
func seedPair(db *memDB, active bool, capacity int, courses ...string) (model.ClassPair, model.Class, model.Class) {
	p := model.ClassPair{
		ID:      uuid.New(),
		Name:    "Par 1 - Manhã",
		Period:  model.PeriodManha,
		Courses: courses,
		Active:  active,
	}
	db.pairs[p.ID] = p
	a := model.Class{ID: uuid.New(), PairID: p.ID, Variant: model.VariantA, RoomID: uuid.New(), Capacity: capacity}
	b := model.Class{ID: uuid.New(), PairID: p.ID, Variant: model.VariantB, RoomID: uuid.New(), Capacity: capacity}
	db.classes[a.ID] = a
	db.classes[b.ID] = b
	return p, a, b
}

func seedStudent(db *memDB, pair model.ClassPair, class model.Class, idNumber, course string) model.Student {
	db.seq++
	st := model.Student{
		ID:            uuid.New(),
		Name:          "Aluno " + idNumber,
		Phone:         "923000000",
		IDNumber:      idNumber,
		StudentNumber: fmt.Sprintf("2026%04d", db.seq),
		CourseCode:    course,
		PairID:        pair.ID,
		ClassID:       class.ID,
		PaymentMethod: model.PaymentCash,
		Status:        model.StatusEnrolled,
		EnrolledAt:    time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	db.students[st.ID] = st
	c := db.classes[class.ID]
	c.Enrolled++
	db.classes[class.ID] = c
	return st
}
