package content

import (
	"context"
	"fmt"

	"github.com/skilldesk/skilldesk/internal/curriculum"
)

// Store persists the catalog. Both tiers go through the same contract;
// Scope picks the partition. "Not found" and "soft-deleted" are collapsed
// into ErrNotFound everywhere.
//
// DeleteLesson and DeleteQuiz carry the cascading cleanup: the item's
// curriculum reference is removed from every live referencing course in the
// same partition as one batch, and only then is the item soft-deleted. If
// the batch cannot be committed the deletion fails closed.
type Store interface {
	CreateProgram(ctx context.Context, p Program) (string, error)
	GetProgram(ctx context.Context, id string) (*Program, error)
	ListPrograms(ctx context.Context) ([]Program, error)
	UpdateProgram(ctx context.Context, id string, patch ProgramPatch) error
	AddProgramCourse(ctx context.Context, id, courseID string) error
	RemoveProgramCourse(ctx context.Context, id, courseID string) error
	SoftDeleteProgram(ctx context.Context, id string) error

	CreateCourse(ctx context.Context, c Course) (string, error)
	GetCourse(ctx context.Context, scope Scope, id string) (*Course, error)
	ListCourses(ctx context.Context, scope Scope) ([]Course, error)
	SearchCourses(ctx context.Context, scope Scope, query string) ([]Course, error)
	UpdateCourse(ctx context.Context, scope Scope, id string, patch CoursePatch) error
	ReplaceCurriculum(ctx context.Context, scope Scope, id string, refs []string) error
	SoftDeleteCourse(ctx context.Context, scope Scope, id string) error

	// ResolveCourse finds a course by ID alone, trying the brand's partition
	// first and falling back to the global library.
	ResolveCourse(ctx context.Context, brandID, id string) (*Course, error)

	CreateLesson(ctx context.Context, l Lesson) (string, error)
	GetLesson(ctx context.Context, scope Scope, id string) (*Lesson, error)
	ListLessons(ctx context.Context, scope Scope) ([]Lesson, error)
	UpdateLesson(ctx context.Context, scope Scope, id string, patch LessonPatch) error
	DeleteLesson(ctx context.Context, scope Scope, id string) error

	CreateQuiz(ctx context.Context, q Quiz) (string, error)
	GetQuiz(ctx context.Context, scope Scope, id string) (*Quiz, error)
	ListQuizzes(ctx context.Context, scope Scope) ([]Quiz, error)
	UpdateQuiz(ctx context.Context, scope Scope, id string, patch QuizPatch) error
	DeleteQuiz(ctx context.Context, scope Scope, id string) error

	AddQuestion(ctx context.Context, scope Scope, quizID string, q Question) (string, error)
	UpdateQuestion(ctx context.Context, scope Scope, quizID string, q Question) error
	DeleteQuestion(ctx context.Context, scope Scope, quizID, questionID string) error

	// ResolveItem reports whether a curriculum reference points at a live
	// item. Item IDs are unique across brands, so no brand context is needed.
	ResolveItem(ctx context.Context, ref curriculum.ItemRef) (bool, error)
}

// validateCurriculum checks a proposed curriculum for a course in the given
// scope: every reference well-formed, and no brand-private references inside
// a global-library course.
func validateCurriculum(scope Scope, refs []string) error {
	parsed, err := curriculum.ValidateList(refs)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if scope.Tier == TierGlobal {
		for _, r := range parsed {
			if r.Kind.BrandScoped() {
				return fmt.Errorf("%w: global course cannot reference %s", ErrInvalidInput, r)
			}
		}
	}
	return nil
}
