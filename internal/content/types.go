// Package content is the repository for the four entity kinds the catalog is
// built from: programs, courses, lessons and quizzes with their embedded
// questions. Courses, lessons and quizzes exist in two parallel tiers with
// identical shapes — the global library and each brand's private library.
// Nothing here is ever hard-deleted except embedded questions; everything
// else is retired with a soft-delete flag and filtered out of reads.
package content

import (
	"time"

	"github.com/skilldesk/skilldesk/internal/curriculum"
)

// Tier selects one of the two content universes.
type Tier string

const (
	TierGlobal Tier = "global"
	TierBrand  Tier = "brand"
)

// Scope addresses one storage partition: the global library, or one brand's.
type Scope struct {
	Tier    Tier
	BrandID string // set only for TierBrand
}

// GlobalScope addresses the global library.
func GlobalScope() Scope {
	return Scope{Tier: TierGlobal}
}

// BrandScope addresses a single brand's private library.
func BrandScope(brandID string) Scope {
	return Scope{Tier: TierBrand, BrandID: brandID}
}

// LessonKind returns the curriculum reference kind for lessons in this scope.
func (s Scope) LessonKind() curriculum.Kind {
	if s.Tier == TierBrand {
		return curriculum.KindBrandLesson
	}
	return curriculum.KindLesson
}

// QuizKind returns the curriculum reference kind for quizzes in this scope.
func (s Scope) QuizKind() curriculum.Kind {
	if s.Tier == TierBrand {
		return curriculum.KindBrandQuiz
	}
	return curriculum.KindQuiz
}

// Program is an operator-curated bundle of courses with pricing. Programs are
// never hard-deleted.
type Program struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	PriceCents int64      `json:"price_cents"`
	Currency   string     `json:"currency"`
	CourseIDs  []string   `json:"course_ids"`
	Deleted    bool       `json:"deleted"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Course composes lessons and quizzes through an ordered curriculum of
// "{kind}-{id}" references. Entries may point into either tier; the order is
// whatever the editing surface last saved.
type Course struct {
	ID          string     `json:"id"`
	Tier        Tier       `json:"tier"`
	BrandID     string     `json:"brand_id,omitempty"`
	Title       string     `json:"title"`
	ShortDesc   string     `json:"short_desc"`
	Description string     `json:"description"`
	CoverURL    string     `json:"cover_url"`
	Curriculum  []string   `json:"curriculum"`
	Deleted     bool       `json:"deleted"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Scope returns the partition the course lives in.
func (c *Course) Scope() Scope {
	if c.Tier == TierBrand {
		return BrandScope(c.BrandID)
	}
	return GlobalScope()
}

// Lesson is a unit of course content.
type Lesson struct {
	ID        string     `json:"id"`
	Tier      Tier       `json:"tier"`
	BrandID   string     `json:"brand_id,omitempty"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	MediaURL  string     `json:"media_url"`
	Deleted   bool       `json:"deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Question is embedded in its quiz, never a document of its own. Edits to
// any question rewrite the quiz's whole array.
type Question struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"` // "single-choice" or "multiple-select"
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Correct []int    `json:"correct"` // indexes into Options
}

const (
	QuestionSingleChoice   = "single-choice"
	QuestionMultipleSelect = "multiple-select"
)

// Quiz owns an embedded list of questions. Version guards the whole-array
// question rewrites against concurrent editors.
type Quiz struct {
	ID        string     `json:"id"`
	Tier      Tier       `json:"tier"`
	BrandID   string     `json:"brand_id,omitempty"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
	Version   int64      `json:"version"`
	Deleted   bool       `json:"deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ProgramPatch enumerates the program fields an update may touch. Nil fields
// are left alone.
type ProgramPatch struct {
	Title      *string
	PriceCents *int64
	Currency   *string
}

// CoursePatch enumerates the course metadata fields an update may touch.
// Clearing a field is explicit, never inferred from an empty string.
type CoursePatch struct {
	Title         *string
	ShortDesc     *string
	Description   *string
	CoverURL      *string
	ClearCoverURL bool
}

// LessonPatch enumerates the lesson fields an update may touch.
type LessonPatch struct {
	Title         *string
	Body          *string
	MediaURL      *string
	ClearMediaURL bool
}

// QuizPatch enumerates the quiz metadata fields an update may touch.
// Questions are edited through the question operations, not here.
type QuizPatch struct {
	Title *string
}
