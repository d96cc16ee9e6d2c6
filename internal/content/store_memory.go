package content

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skilldesk/skilldesk/internal/curriculum"
)

// MemoryStore is an in-memory Store used by tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	programs map[string]*Program
	courses  map[string]*Course
	lessons  map[string]*Lesson
	quizzes  map[string]*Quiz
}

// NewMemoryStore creates an empty in-memory catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		programs: make(map[string]*Program),
		courses:  make(map[string]*Course),
		lessons:  make(map[string]*Lesson),
		quizzes:  make(map[string]*Quiz),
	}
}

func matchScope(tier Tier, brandID string, scope Scope) bool {
	if tier != scope.Tier {
		return false
	}
	return tier == TierGlobal || brandID == scope.BrandID
}

func (s *MemoryStore) CreateProgram(_ context.Context, p Program) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CourseIDs == nil {
		p.CourseIDs = []string{}
	}
	now := time.Now()
	p.Deleted = false
	p.DeletedAt = nil
	p.CreatedAt = now
	p.UpdatedAt = now
	s.programs[p.ID] = &p
	return p.ID, nil
}

func (s *MemoryStore) GetProgram(_ context.Context, id string) (*Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.programs[id]
	if !ok || p.Deleted {
		return nil, ErrNotFound
	}
	return cloneProgram(p), nil
}

func (s *MemoryStore) ListPrograms(_ context.Context) ([]Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Program{}
	for _, p := range s.programs {
		if !p.Deleted {
			out = append(out, *cloneProgram(p))
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateProgram(_ context.Context, id string, patch ProgramPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.programs[id]
	if !ok || p.Deleted {
		return ErrNotFound
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.PriceCents != nil {
		p.PriceCents = *patch.PriceCents
	}
	if patch.Currency != nil {
		p.Currency = *patch.Currency
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) AddProgramCourse(_ context.Context, id, courseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.programs[id]
	if !ok || p.Deleted {
		return ErrNotFound
	}
	if !slices.Contains(p.CourseIDs, courseID) {
		p.CourseIDs = append(p.CourseIDs, courseID)
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) RemoveProgramCourse(_ context.Context, id, courseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.programs[id]
	if !ok || p.Deleted {
		return ErrNotFound
	}
	p.CourseIDs = slices.DeleteFunc(p.CourseIDs, func(c string) bool { return c == courseID })
	p.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SoftDeleteProgram(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.programs[id]
	if !ok || p.Deleted {
		return ErrNotFound
	}
	now := time.Now()
	p.Deleted = true
	p.DeletedAt = &now
	return nil
}

func (s *MemoryStore) CreateCourse(_ context.Context, c Course) (string, error) {
	if err := validateCurriculum(c.Scope(), c.Curriculum); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Curriculum == nil {
		c.Curriculum = []string{}
	}
	now := time.Now()
	c.Deleted = false
	c.DeletedAt = nil
	c.CreatedAt = now
	c.UpdatedAt = now
	s.courses[c.ID] = &c
	return c.ID, nil
}

func (s *MemoryStore) GetCourse(_ context.Context, scope Scope, id string) (*Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.courses[id]
	if !ok || c.Deleted || !matchScope(c.Tier, c.BrandID, scope) {
		return nil, ErrNotFound
	}
	return cloneCourse(c), nil
}

func (s *MemoryStore) ListCourses(_ context.Context, scope Scope) ([]Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Course{}
	for _, c := range s.courses {
		if !c.Deleted && matchScope(c.Tier, c.BrandID, scope) {
			out = append(out, *cloneCourse(c))
		}
	}
	return out, nil
}

func (s *MemoryStore) SearchCourses(ctx context.Context, scope Scope, query string) ([]Course, error) {
	all, err := s.ListCourses(ctx, scope)
	if err != nil {
		return nil, err
	}
	return filterCoursesByTitle(all, query), nil
}

func (s *MemoryStore) UpdateCourse(_ context.Context, scope Scope, id string, patch CoursePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[id]
	if !ok || c.Deleted || !matchScope(c.Tier, c.BrandID, scope) {
		return ErrNotFound
	}
	applyCoursePatch(c, patch)
	c.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) ReplaceCurriculum(_ context.Context, scope Scope, id string, refs []string) error {
	if err := validateCurriculum(scope, refs); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[id]
	if !ok || c.Deleted || !matchScope(c.Tier, c.BrandID, scope) {
		return ErrNotFound
	}
	c.Curriculum = slices.Clone(refs)
	c.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SoftDeleteCourse(_ context.Context, scope Scope, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[id]
	if !ok || c.Deleted || !matchScope(c.Tier, c.BrandID, scope) {
		return ErrNotFound
	}
	now := time.Now()
	c.Deleted = true
	c.DeletedAt = &now
	return nil
}

func (s *MemoryStore) ResolveCourse(ctx context.Context, brandID, id string) (*Course, error) {
	if brandID != "" {
		if c, err := s.GetCourse(ctx, BrandScope(brandID), id); err == nil {
			return c, nil
		}
	}
	return s.GetCourse(ctx, GlobalScope(), id)
}

func (s *MemoryStore) CreateLesson(_ context.Context, l Lesson) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := time.Now()
	l.Deleted = false
	l.DeletedAt = nil
	l.CreatedAt = now
	l.UpdatedAt = now
	s.lessons[l.ID] = &l
	return l.ID, nil
}

func (s *MemoryStore) GetLesson(_ context.Context, scope Scope, id string) (*Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.lessons[id]
	if !ok || l.Deleted || !matchScope(l.Tier, l.BrandID, scope) {
		return nil, ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *MemoryStore) ListLessons(_ context.Context, scope Scope) ([]Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Lesson{}
	for _, l := range s.lessons {
		if !l.Deleted && matchScope(l.Tier, l.BrandID, scope) {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateLesson(_ context.Context, scope Scope, id string, patch LessonPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lessons[id]
	if !ok || l.Deleted || !matchScope(l.Tier, l.BrandID, scope) {
		return ErrNotFound
	}
	applyLessonPatch(l, patch)
	l.UpdatedAt = time.Now()
	return nil
}

// DeleteLesson removes the lesson's reference from every live course in the
// same partition, then soft-deletes the lesson. The cleanup runs first so a
// reader never sees a reference to an already-deleted item.
func (s *MemoryStore) DeleteLesson(_ context.Context, scope Scope, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lessons[id]
	if !ok || l.Deleted || !matchScope(l.Tier, l.BrandID, scope) {
		return ErrNotFound
	}

	s.removeRefLocked(scope, curriculum.ItemRef{Kind: scope.LessonKind(), ID: id}.String())

	now := time.Now()
	l.Deleted = true
	l.DeletedAt = &now
	return nil
}

func (s *MemoryStore) CreateQuiz(_ context.Context, q Quiz) (string, error) {
	for i := range q.Questions {
		if err := ValidateQuestion(q.Questions[i]); err != nil {
			return "", err
		}
		if q.Questions[i].ID == "" {
			q.Questions[i].ID = uuid.NewString()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Questions == nil {
		q.Questions = []Question{}
	}
	now := time.Now()
	q.Version = 1
	q.Deleted = false
	q.DeletedAt = nil
	q.CreatedAt = now
	q.UpdatedAt = now
	s.quizzes[q.ID] = &q
	return q.ID, nil
}

func (s *MemoryStore) GetQuiz(_ context.Context, scope Scope, id string) (*Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quizzes[id]
	if !ok || q.Deleted || !matchScope(q.Tier, q.BrandID, scope) {
		return nil, ErrNotFound
	}
	return cloneQuiz(q), nil
}

func (s *MemoryStore) ListQuizzes(_ context.Context, scope Scope) ([]Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Quiz{}
	for _, q := range s.quizzes {
		if !q.Deleted && matchScope(q.Tier, q.BrandID, scope) {
			out = append(out, *cloneQuiz(q))
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateQuiz(_ context.Context, scope Scope, id string, patch QuizPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quizzes[id]
	if !ok || q.Deleted || !matchScope(q.Tier, q.BrandID, scope) {
		return ErrNotFound
	}
	if patch.Title != nil {
		q.Title = *patch.Title
	}
	q.UpdatedAt = time.Now()
	return nil
}

// DeleteQuiz mirrors DeleteLesson: cleanup first, then soft-delete.
func (s *MemoryStore) DeleteQuiz(_ context.Context, scope Scope, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quizzes[id]
	if !ok || q.Deleted || !matchScope(q.Tier, q.BrandID, scope) {
		return ErrNotFound
	}

	s.removeRefLocked(scope, curriculum.ItemRef{Kind: scope.QuizKind(), ID: id}.String())

	now := time.Now()
	q.Deleted = true
	q.DeletedAt = &now
	return nil
}

func (s *MemoryStore) AddQuestion(_ context.Context, scope Scope, quizID string, question Question) (string, error) {
	if err := ValidateQuestion(question); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quizzes[quizID]
	if !ok || q.Deleted || !matchScope(q.Tier, q.BrandID, scope) {
		return "", ErrNotFound
	}
	if question.ID == "" {
		question.ID = uuid.NewString()
	}
	q.Questions = append(q.Questions, question)
	q.Version++
	q.UpdatedAt = time.Now()
	return question.ID, nil
}

func (s *MemoryStore) UpdateQuestion(_ context.Context, scope Scope, quizID string, question Question) error {
	if err := ValidateQuestion(question); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quizzes[quizID]
	if !ok || q.Deleted || !matchScope(q.Tier, q.BrandID, scope) {
		return ErrNotFound
	}
	for i := range q.Questions {
		if q.Questions[i].ID == question.ID {
			q.Questions[i] = question
			q.Version++
			q.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) DeleteQuestion(_ context.Context, scope Scope, quizID, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quizzes[quizID]
	if !ok || q.Deleted || !matchScope(q.Tier, q.BrandID, scope) {
		return ErrNotFound
	}
	before := len(q.Questions)
	q.Questions = slices.DeleteFunc(q.Questions, func(qu Question) bool { return qu.ID == questionID })
	if len(q.Questions) == before {
		return ErrNotFound
	}
	q.Version++
	q.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) ResolveItem(_ context.Context, ref curriculum.ItemRef) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wantTier := TierGlobal
	if ref.Kind.BrandScoped() {
		wantTier = TierBrand
	}
	if ref.Kind.IsQuiz() {
		q, ok := s.quizzes[ref.ID]
		return ok && !q.Deleted && q.Tier == wantTier, nil
	}
	l, ok := s.lessons[ref.ID]
	return ok && !l.Deleted && l.Tier == wantTier, nil
}

// removeRefLocked is the cleanup batch: it rewrites every live course in the
// partition that still carries ref. Idempotent; a second run finds nothing.
func (s *MemoryStore) removeRefLocked(scope Scope, ref string) {
	for _, c := range s.courses {
		if c.Deleted || !matchScope(c.Tier, c.BrandID, scope) {
			continue
		}
		if curriculum.Contains(c.Curriculum, ref) {
			c.Curriculum = curriculum.Remove(c.Curriculum, ref)
			c.UpdatedAt = time.Now()
		}
	}
}

func applyCoursePatch(c *Course, patch CoursePatch) {
	if patch.Title != nil {
		c.Title = *patch.Title
	}
	if patch.ShortDesc != nil {
		c.ShortDesc = *patch.ShortDesc
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	if patch.CoverURL != nil {
		c.CoverURL = *patch.CoverURL
	}
	if patch.ClearCoverURL {
		c.CoverURL = ""
	}
}

func applyLessonPatch(l *Lesson, patch LessonPatch) {
	if patch.Title != nil {
		l.Title = *patch.Title
	}
	if patch.Body != nil {
		l.Body = *patch.Body
	}
	if patch.MediaURL != nil {
		l.MediaURL = *patch.MediaURL
	}
	if patch.ClearMediaURL {
		l.MediaURL = ""
	}
}

func cloneProgram(p *Program) *Program {
	cp := *p
	cp.CourseIDs = slices.Clone(p.CourseIDs)
	return &cp
}

func cloneCourse(c *Course) *Course {
	cp := *c
	cp.Curriculum = slices.Clone(c.Curriculum)
	return &cp
}

func cloneQuiz(q *Quiz) *Quiz {
	cp := *q
	cp.Questions = slices.Clone(q.Questions)
	return &cp
}
