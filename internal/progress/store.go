package progress

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skilldesk/skilldesk/internal/content"
)

// Store persists users and their ledger records.
//
// UpsertCompletion must add the reference with set-union semantics — never a
// read-modify-write of the whole set — so two sessions completing different
// items concurrently cannot lose each other's addition. The percentage and
// status ride along last-write-wins; reads recompute them anyway.
type Store interface {
	CreateUser(ctx context.Context, u User) (string, error)
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context, brandID string) ([]User, error)
	ListTeamUsers(ctx context.Context, brandID, teamID string) ([]User, error)

	// AssignCourse adds the course to the user's set and creates the zeroed
	// ledger record if it does not exist yet.
	AssignCourse(ctx context.Context, userID, courseID string) error
	// UnassignCourse removes the course and deletes the ledger record
	// outright; records are the one thing in this system that is removed,
	// not soft-deleted.
	UnassignCourse(ctx context.Context, userID, courseID string) error

	GetRecord(ctx context.Context, userID, courseID string) (*Record, error)
	ListRecords(ctx context.Context, userID string) ([]Record, error)
	UpsertCompletion(ctx context.Context, userID, courseID, ref string, progress int, status Status, at time.Time) error
}

// MemoryStore is an in-memory Store used by tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]*User
	records map[string]map[string]*Record // userID -> courseID -> record
}

// NewMemoryStore creates an empty in-memory ledger store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*User),
		records: make(map[string]map[string]*Record),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.AssignedCourseIDs == nil {
		u.AssignedCourseIDs = []string{}
	}
	if u.Role == "" {
		u.Role = RoleStaff
	}
	u.CreatedAt = time.Now()
	s.users[u.ID] = &u
	s.records[u.ID] = make(map[string]*Record)
	return u.ID, nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, content.ErrNotFound
	}
	cp := *u
	cp.AssignedCourseIDs = slices.Clone(u.AssignedCourseIDs)
	return &cp, nil
}

func (s *MemoryStore) ListUsers(_ context.Context, brandID string) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []User{}
	for _, u := range s.users {
		if u.BrandID == brandID {
			cp := *u
			cp.AssignedCourseIDs = slices.Clone(u.AssignedCourseIDs)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListTeamUsers(ctx context.Context, brandID, teamID string) ([]User, error) {
	all, err := s.ListUsers(ctx, brandID)
	if err != nil {
		return nil, err
	}
	out := []User{}
	for _, u := range all {
		if u.TeamID == teamID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *MemoryStore) AssignCourse(_ context.Context, userID, courseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return content.ErrNotFound
	}
	if !slices.Contains(u.AssignedCourseIDs, courseID) {
		u.AssignedCourseIDs = append(u.AssignedCourseIDs, courseID)
	}
	if _, ok := s.records[userID][courseID]; !ok {
		s.records[userID][courseID] = &Record{
			UserID:         userID,
			CourseID:       courseID,
			CompletedItems: []string{},
			Status:         StatusNotStarted,
		}
	}
	return nil
}

func (s *MemoryStore) UnassignCourse(_ context.Context, userID, courseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return content.ErrNotFound
	}
	u.AssignedCourseIDs = slices.DeleteFunc(u.AssignedCourseIDs, func(c string) bool { return c == courseID })
	delete(s.records[userID], courseID)
	return nil
}

func (s *MemoryStore) GetRecord(_ context.Context, userID, courseID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[userID][courseID]
	if !ok {
		return nil, content.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore) ListRecords(_ context.Context, userID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Record{}
	for _, rec := range s.records[userID] {
		out = append(out, *cloneRecord(rec))
	}
	return out, nil
}

func (s *MemoryStore) UpsertCompletion(_ context.Context, userID, courseID, ref string, progressPct int, status Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return content.ErrNotFound
	}
	byCourse := s.records[userID]
	rec, ok := byCourse[courseID]
	if !ok {
		rec = &Record{UserID: userID, CourseID: courseID, CompletedItems: []string{}}
		byCourse[courseID] = rec
	}
	if !slices.Contains(rec.CompletedItems, ref) {
		rec.CompletedItems = append(rec.CompletedItems, ref)
	}
	rec.Progress = progressPct
	rec.Status = status
	rec.LastUpdated = at
	return nil
}

func cloneRecord(rec *Record) *Record {
	cp := *rec
	cp.CompletedItems = slices.Clone(rec.CompletedItems)
	return &cp
}
