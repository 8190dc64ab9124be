package inmemdb

import (
	"sort"
	"strings"

	"github.com/trezcool/masomo-admin/core/discipline"
	"github.com/trezcool/masomo-admin/core/violation"
)

type schoolStore struct {
	db *DB
}

var _ discipline.Store = (*schoolStore)(nil)

func NewSchoolStore(db *DB) discipline.Store {
	return &schoolStore{db: db}
}

// Students & reporters

func (s *schoolStore) QueryStudents(search string) ([]violation.Student, error) {
	t := s.db.student
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	search = strings.ToLower(search)
	students := make([]violation.Student, 0, len(t.order))
	for _, id := range t.order {
		st := t.table[id]
		if search == "" || strings.Contains(strings.ToLower(st.Name), search) ||
			strings.Contains(strings.ToLower(st.ClassName), search) {
			students = append(students, *st)
		}
	}
	return students, nil
}

func (s *schoolStore) GetStudent(id string) (violation.Student, error) {
	t := s.db.student
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if st, ok := t.table[id]; ok {
		return *st, nil
	}
	return violation.Student{}, discipline.ErrStudentNotFound
}

func (s *schoolStore) UpdateStudent(student violation.Student) error {
	t := s.db.student
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, ok := t.table[student.ID]; !ok {
		return discipline.ErrStudentNotFound
	}
	t.table[student.ID] = &student
	return nil
}

func (s *schoolStore) QueryReporters() ([]violation.Reporter, error) {
	t := s.db.reporter
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	reporters := make([]violation.Reporter, 0, len(t.order))
	for _, id := range t.order {
		reporters = append(reporters, *t.table[id])
	}
	return reporters, nil
}

func (s *schoolStore) GetReporter(id string) (violation.Reporter, error) {
	t := s.db.reporter
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if rep, ok := t.table[id]; ok {
		return *rep, nil
	}
	return violation.Reporter{}, discipline.ErrReporterNotFound
}

// Violations

func (s *schoolStore) QueryViolations(filter violation.QueryFilter) ([]violation.Violation, error) {
	t := s.db.violation
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	vs := make([]violation.Violation, 0, len(t.table))
	for _, v := range t.table {
		if filter.Match(*v) {
			vs = append(vs, v.Clone())
		}
	}
	sort.SliceStable(vs, func(i, j int) bool {
		if ki, kj := vs[i].SortKey(), vs[j].SortKey(); ki != kj {
			return ki > kj
		}
		return vs[i].CreatedAt.After(vs[j].CreatedAt)
	})
	return vs, nil
}

func (s *schoolStore) GetViolation(id string) (violation.Violation, error) {
	t := s.db.violation
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if v, ok := t.table[id]; ok {
		return v.Clone(), nil
	}
	return violation.Violation{}, violation.ErrNotFound
}

func (s *schoolStore) CountViolations(studentID, violationType string) (int, error) {
	t := s.db.violation
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	var n int
	for _, v := range t.table {
		if v.StudentID == studentID && strings.EqualFold(v.Type, violationType) {
			n++
		}
	}
	return n, nil
}

func (s *schoolStore) SaveViolation(v violation.Violation) error {
	t := s.db.violation
	t.mutex.Lock()
	defer t.mutex.Unlock()

	v = v.Clone()
	t.table[v.ID] = &v
	return nil
}

func (s *schoolStore) DeleteViolation(id string) error {
	t := s.db.violation
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, ok := t.table[id]; !ok {
		return violation.ErrNotFound
	}
	delete(t.table, id)
	return nil
}

func (s *schoolStore) Catalog() discipline.Catalog { return s.db.catalog }
