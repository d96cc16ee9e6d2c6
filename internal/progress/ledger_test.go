package progress_test

import (
	"context"
	"errors"
	"testing"

	"github.com/skilldesk/skilldesk/internal/content"
	"github.com/skilldesk/skilldesk/internal/events"
	"github.com/skilldesk/skilldesk/internal/progress"
)

type fixture struct {
	catalog *content.MemoryStore
	store   *progress.MemoryStore
	sink    *events.MemorySink
	ledger  *progress.Ledger
}

func newFixture() *fixture {
	catalog := content.NewMemoryStore()
	store := progress.NewMemoryStore()
	sink := events.NewMemorySink()
	return &fixture{
		catalog: catalog,
		store:   store,
		sink:    sink,
		ledger: progress.NewLedger(progress.LedgerConfig{
			Store:   store,
			Courses: catalog,
			Sink:    sink,
		}),
	}
}

// twoItemCourse seeds a global course whose curriculum is one lesson followed
// by one quiz, returning the IDs involved.
func (f *fixture) twoItemCourse(t *testing.T) (userID, courseID, lessonID string) {
	t.Helper()
	ctx := context.Background()

	lessonID, err := f.catalog.CreateLesson(ctx, content.Lesson{Tier: content.TierGlobal, Title: "Intro"})
	if err != nil {
		t.Fatalf("CreateLesson() error = %v", err)
	}
	quizID, err := f.catalog.CreateQuiz(ctx, content.Quiz{Tier: content.TierGlobal, Title: "Check"})
	if err != nil {
		t.Fatalf("CreateQuiz() error = %v", err)
	}
	courseID, err = f.catalog.CreateCourse(ctx, content.Course{
		Tier:       content.TierGlobal,
		Title:      "Basics",
		Curriculum: []string{"lesson-" + lessonID, "quiz-" + quizID},
	})
	if err != nil {
		t.Fatalf("CreateCourse() error = %v", err)
	}

	userID, err = f.store.CreateUser(ctx, progress.User{BrandID: "acme", Name: "Sam"})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if err := f.store.AssignCourse(ctx, userID, courseID); err != nil {
		t.Fatalf("AssignCourse() error = %v", err)
	}
	return userID, courseID, lessonID
}

func TestRecordCompletion_Lifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	userID, courseID, lessonID := f.twoItemCourse(t)

	rec, err := f.ledger.RecordCompletion(ctx, userID, courseID, 0)
	if err != nil {
		t.Fatalf("RecordCompletion(0) error = %v", err)
	}
	if rec.Progress != 50 || rec.Status != progress.StatusInProgress {
		t.Errorf("after first item: progress = %d, status = %q; want 50, In Progress", rec.Progress, rec.Status)
	}

	// Completing the same item again changes nothing.
	rec, err = f.ledger.RecordCompletion(ctx, userID, courseID, 0)
	if err != nil {
		t.Fatalf("RecordCompletion(0) again error = %v", err)
	}
	if rec.Progress != 50 || len(rec.CompletedItems) != 1 {
		t.Errorf("after repeat: progress = %d, completed = %v", rec.Progress, rec.CompletedItems)
	}

	rec, err = f.ledger.RecordCompletion(ctx, userID, courseID, 1)
	if err != nil {
		t.Fatalf("RecordCompletion(1) error = %v", err)
	}
	if rec.Progress != 100 || rec.Status != progress.StatusCompleted {
		t.Errorf("after both items: progress = %d, status = %q; want 100, Completed", rec.Progress, rec.Status)
	}

	// The lesson is retired; the course shrinks to one quiz the user has
	// already completed, so the recomputed view stays at 100%.
	if err := f.catalog.DeleteLesson(ctx, content.GlobalScope(), lessonID); err != nil {
		t.Fatalf("DeleteLesson() error = %v", err)
	}
	rec, err = f.ledger.CourseProgress(ctx, userID, courseID)
	if err != nil {
		t.Fatalf("CourseProgress() error = %v", err)
	}
	if rec.Progress != 100 || rec.Status != progress.StatusCompleted {
		t.Errorf("after lesson delete: progress = %d, status = %q; want 100, Completed", rec.Progress, rec.Status)
	}

	if got := len(f.sink.Events()); got != 3 {
		t.Errorf("published events = %d, want 3", got)
	}
}

func TestRecordCompletion_IndexOutOfRange(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	userID, courseID, _ := f.twoItemCourse(t)

	for _, idx := range []int{-1, 2, 99} {
		if _, err := f.ledger.RecordCompletion(ctx, userID, courseID, idx); !errors.Is(err, progress.ErrIndexOutOfRange) {
			t.Errorf("RecordCompletion(%d) error = %v, want ErrIndexOutOfRange", idx, err)
		}
	}
}

func TestRecordCompletion_UnknownUserOrCourse(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	userID, _, _ := f.twoItemCourse(t)

	if _, err := f.ledger.RecordCompletion(ctx, "ghost", "whatever", 0); !errors.Is(err, content.ErrNotFound) {
		t.Errorf("RecordCompletion(unknown user) error = %v, want ErrNotFound", err)
	}
	if _, err := f.ledger.RecordCompletion(ctx, userID, "ghost-course", 0); !errors.Is(err, content.ErrNotFound) {
		t.Errorf("RecordCompletion(unknown course) error = %v, want ErrNotFound", err)
	}
}

func TestCourseProgress_NoRecordYet(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, courseID, _ := f.twoItemCourse(t)

	// GetRecord misses for a user that was never assigned; the ledger
	// serves a zeroed view instead of an error.
	other, _ := f.store.CreateUser(ctx, progress.User{BrandID: "acme", Name: "New"})
	rec, err := f.ledger.CourseProgress(ctx, other, courseID)
	if err != nil {
		t.Fatalf("CourseProgress() error = %v", err)
	}
	if rec.Progress != 0 || rec.Status != progress.StatusNotStarted {
		t.Errorf("zero record: progress = %d, status = %q", rec.Progress, rec.Status)
	}
}

func TestCourseProgress_UnresolvableCourseKeepsStoredValues(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	userID, courseID, _ := f.twoItemCourse(t)

	if _, err := f.ledger.RecordCompletion(ctx, userID, courseID, 0); err != nil {
		t.Fatalf("RecordCompletion() error = %v", err)
	}
	if err := f.catalog.SoftDeleteCourse(ctx, content.GlobalScope(), courseID); err != nil {
		t.Fatalf("SoftDeleteCourse() error = %v", err)
	}

	rec, err := f.ledger.CourseProgress(ctx, userID, courseID)
	if err != nil {
		t.Fatalf("CourseProgress() error = %v", err)
	}
	if rec.Progress != 50 || rec.Status != progress.StatusInProgress {
		t.Errorf("stored values changed: progress = %d, status = %q; want 50, In Progress", rec.Progress, rec.Status)
	}
}

func TestCourseProgress_CompletedRegressesWhenCurriculumGrows(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	userID, courseID, _ := f.twoItemCourse(t)

	f.ledger.RecordCompletion(ctx, userID, courseID, 0)
	rec, err := f.ledger.RecordCompletion(ctx, userID, courseID, 1)
	if err != nil {
		t.Fatalf("RecordCompletion() error = %v", err)
	}
	if rec.Status != progress.StatusCompleted {
		t.Fatalf("status = %q, want Completed", rec.Status)
	}

	course, _ := f.catalog.GetCourse(ctx, content.GlobalScope(), courseID)
	grown := append(course.Curriculum, "lesson-extra")
	if err := f.catalog.ReplaceCurriculum(ctx, content.GlobalScope(), courseID, grown); err != nil {
		t.Fatalf("ReplaceCurriculum() error = %v", err)
	}

	rec, err = f.ledger.CourseProgress(ctx, userID, courseID)
	if err != nil {
		t.Fatalf("CourseProgress() error = %v", err)
	}
	if rec.Progress != 67 || rec.Status != progress.StatusInProgress {
		t.Errorf("after growth: progress = %d, status = %q; want 67, In Progress", rec.Progress, rec.Status)
	}
}

func TestRecordCompletion_DuplicateCurriculumEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	lessonID, err := f.catalog.CreateLesson(ctx, content.Lesson{Tier: content.TierGlobal, Title: "Repeated"})
	if err != nil {
		t.Fatalf("CreateLesson() error = %v", err)
	}
	ref := "lesson-" + lessonID
	courseID, err := f.catalog.CreateCourse(ctx, content.Course{
		Tier:       content.TierGlobal,
		Title:      "Echo",
		Curriculum: []string{ref, ref},
	})
	if err != nil {
		t.Fatalf("CreateCourse() error = %v", err)
	}
	userID, _ := f.store.CreateUser(ctx, progress.User{BrandID: "acme"})
	f.store.AssignCourse(ctx, userID, courseID)

	// One completed item against a curriculum listing it twice counts once.
	rec, err := f.ledger.RecordCompletion(ctx, userID, courseID, 0)
	if err != nil {
		t.Fatalf("RecordCompletion() error = %v", err)
	}
	if rec.Progress != 50 || rec.Status != progress.StatusInProgress {
		t.Errorf("progress = %d, status = %q; want 50, In Progress", rec.Progress, rec.Status)
	}
}

func TestOverall_ExcludesUnresolvableCourses(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	userID, courseID, _ := f.twoItemCourse(t)

	// A second course that will be retired entirely.
	goneID, _ := f.catalog.CreateCourse(ctx, content.Course{
		Tier:       content.TierGlobal,
		Title:      "Retired",
		Curriculum: []string{"lesson-x", "lesson-y", "lesson-z"},
	})
	if err := f.store.AssignCourse(ctx, userID, goneID); err != nil {
		t.Fatalf("AssignCourse() error = %v", err)
	}

	if _, err := f.ledger.RecordCompletion(ctx, userID, courseID, 0); err != nil {
		t.Fatalf("RecordCompletion() error = %v", err)
	}
	if err := f.catalog.SoftDeleteCourse(ctx, content.GlobalScope(), goneID); err != nil {
		t.Fatalf("SoftDeleteCourse() error = %v", err)
	}

	overall, err := f.ledger.Overall(ctx, userID)
	if err != nil {
		t.Fatalf("Overall() error = %v", err)
	}
	if overall.CompletedItems != 1 || overall.TotalItems != 2 || overall.Progress != 50 {
		t.Errorf("Overall() = %+v, want 1/2 = 50%%", overall)
	}
}

func TestTeam_RollsUpMembers(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	userID, courseID, _ := f.twoItemCourse(t)

	// Move the first user onto a team and add a teammate on the same course.
	u, _ := f.store.GetUser(ctx, userID)
	mate, _ := f.store.CreateUser(ctx, progress.User{BrandID: u.BrandID, TeamID: "kitchen", Name: "Alex"})
	f.store.AssignCourse(ctx, mate, courseID)
	lead, _ := f.store.CreateUser(ctx, progress.User{BrandID: u.BrandID, TeamID: "kitchen", Name: "Riley"})
	f.store.AssignCourse(ctx, lead, courseID)

	f.ledger.RecordCompletion(ctx, mate, courseID, 0)
	f.ledger.RecordCompletion(ctx, lead, courseID, 0)
	f.ledger.RecordCompletion(ctx, lead, courseID, 1)

	team, err := f.ledger.Team(ctx, u.BrandID, "kitchen")
	if err != nil {
		t.Fatalf("Team() error = %v", err)
	}
	if len(team.Members) != 2 {
		t.Fatalf("members = %d, want 2", len(team.Members))
	}
	if team.CompletedItems != 3 || team.TotalItems != 4 || team.Progress != 75 {
		t.Errorf("Team() = %d/%d = %d%%, want 3/4 = 75%%", team.CompletedItems, team.TotalItems, team.Progress)
	}
}

func TestUnassignCourse_DropsRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	userID, courseID, _ := f.twoItemCourse(t)

	if _, err := f.ledger.RecordCompletion(ctx, userID, courseID, 0); err != nil {
		t.Fatalf("RecordCompletion() error = %v", err)
	}
	if err := f.store.UnassignCourse(ctx, userID, courseID); err != nil {
		t.Fatalf("UnassignCourse() error = %v", err)
	}
	if _, err := f.store.GetRecord(ctx, userID, courseID); !errors.Is(err, content.ErrNotFound) {
		t.Errorf("GetRecord() after unassign error = %v, want ErrNotFound", err)
	}

	overall, err := f.ledger.Overall(ctx, userID)
	if err != nil {
		t.Fatalf("Overall() error = %v", err)
	}
	if overall.TotalItems != 0 || overall.Progress != 0 {
		t.Errorf("Overall() after unassign = %+v, want empty", overall)
	}
}

func TestRoleOrdering(t *testing.T) {
	if !progress.RoleSuperAdmin.AtLeast(progress.RoleOwner) {
		t.Error("superAdmin should rank at least owner")
	}
	if progress.RoleStaff.AtLeast(progress.RoleManager) {
		t.Error("staff should rank below manager")
	}
	if !progress.RoleManager.AtLeast(progress.RoleManager) {
		t.Error("a role should rank at least itself")
	}
	if progress.Role("intern").AtLeast(progress.RoleStaff) {
		t.Error("unknown roles should rank below staff")
	}
}
