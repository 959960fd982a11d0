// Package inmem holds map-backed repositories used by service and handler tests.
package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/db"
)

// Store is the shared state behind every in-memory repository
type Store struct {
	mu    sync.Mutex
	txMu  sync.Mutex
	state *state
}

type state struct {
	seq map[string]int64

	users    map[int64]*models.User
	tokens   map[string]*models.RefreshToken
	otpCodes map[int64]*models.OTPCode

	regions   []models.Region
	provinces []models.Province
	cities    []models.City
	barangays []models.Barangay

	students     map[int64]*models.Student
	counters     map[int]int
	applications map[int64]*models.Application

	courses   map[int64]*models.Course
	subjects  map[int64]*models.Subject
	sections  map[int64]*models.Section
	schedules map[int64]*models.Schedule

	enrollments        map[int64]*models.Enrollment
	enrollmentSubjects map[int64]*models.EnrollmentSubject
	grades             map[int64]*models.Grade

	documents map[int64]*models.Document
	adminLogs map[int64]*models.AdminLog
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{state: &state{
		seq:                map[string]int64{},
		users:              map[int64]*models.User{},
		tokens:             map[string]*models.RefreshToken{},
		otpCodes:           map[int64]*models.OTPCode{},
		students:           map[int64]*models.Student{},
		counters:           map[int]int{},
		applications:       map[int64]*models.Application{},
		courses:            map[int64]*models.Course{},
		subjects:           map[int64]*models.Subject{},
		sections:           map[int64]*models.Section{},
		schedules:          map[int64]*models.Schedule{},
		enrollments:        map[int64]*models.Enrollment{},
		enrollmentSubjects: map[int64]*models.EnrollmentSubject{},
		grades:             map[int64]*models.Grade{},
		documents:          map[int64]*models.Document{},
		adminLogs:          map[int64]*models.AdminLog{},
	}}
}

func (st *state) next(table string) int64 {
	st.seq[table]++
	return st.seq[table]
}

// Records are stored by value behind pointers and never mutated through
// shared pointer fields, so a shallow copy per record is a full snapshot.
func cloneMap[K comparable, V any](m map[K]*V) map[K]*V {
	out := make(map[K]*V, len(m))
	for k, v := range m {
		c := *v
		out[k] = &c
	}
	return out
}

func (st *state) clone() *state {
	seq := make(map[string]int64, len(st.seq))
	for k, v := range st.seq {
		seq[k] = v
	}
	counters := make(map[int]int, len(st.counters))
	for k, v := range st.counters {
		counters[k] = v
	}
	return &state{
		seq:                seq,
		users:              cloneMap(st.users),
		tokens:             cloneMap(st.tokens),
		otpCodes:           cloneMap(st.otpCodes),
		regions:            append([]models.Region(nil), st.regions...),
		provinces:          append([]models.Province(nil), st.provinces...),
		cities:             append([]models.City(nil), st.cities...),
		barangays:          append([]models.Barangay(nil), st.barangays...),
		students:           cloneMap(st.students),
		counters:           counters,
		applications:       cloneMap(st.applications),
		courses:            cloneMap(st.courses),
		subjects:           cloneMap(st.subjects),
		sections:           cloneMap(st.sections),
		schedules:          cloneMap(st.schedules),
		enrollments:        cloneMap(st.enrollments),
		enrollmentSubjects: cloneMap(st.enrollmentSubjects),
		grades:             cloneMap(st.grades),
		documents:          cloneMap(st.documents),
		adminLogs:          cloneMap(st.adminLogs),
	}
}

// TxManager serialises transactions and restores a snapshot when fn fails
type TxManager struct {
	store *Store
}

var _ db.TxManager = (*TxManager)(nil)

type txKey struct{}

// TxManager returns the transaction manager bound to the store
func (s *Store) TxManager() *TxManager {
	return &TxManager{store: s}
}

// WithTransaction runs fn atomically; nested calls join the outer transaction
func (t *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()

	t.store.mu.Lock()
	snapshot := t.store.state.clone()
	t.store.mu.Unlock()

	committed := false
	defer func() {
		if !committed {
			t.store.mu.Lock()
			t.store.state = snapshot
			t.store.mu.Unlock()
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		return err
	}
	committed = true
	return nil
}

// lock returns the current state with the store mutex held
func (s *Store) lock() *state {
	s.mu.Lock()
	return s.state
}

func (s *Store) unlock() {
	s.mu.Unlock()
}

// page slices items by offset and limit; a zero limit keeps everything after offset
func page[T any](items []T, offset, limit uint64) []T {
	n := uint64(len(items))
	if offset >= n {
		return []T{}
	}
	end := n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	return items[offset:end]
}

func sortByID[T any](items []*T, id func(*T) int64, desc bool) {
	sort.Slice(items, func(i, j int) bool {
		if desc {
			return id(items[i]) > id(items[j])
		}
		return id(items[i]) < id(items[j])
	})
}
