// Package progress is the per-user, per-course completion ledger and the
// dashboard aggregation over it. A record stores the set of completed
// curriculum references; the percentage and status are derived from that set
// against the course's current curriculum, recomputed on every read that can
// resolve the course.
package progress

import (
	"errors"
	"math"
	"time"
)

// ErrIndexOutOfRange reports a completion recorded for a curriculum index
// the course does not have. A caller error, never retried.
var ErrIndexOutOfRange = errors.New("curriculum index out of range")

// Role is the ordered authorization hierarchy. The ledger itself never
// checks roles; the external authorization layer compares them.
type Role string

const (
	RoleStaff      Role = "staff"
	RoleManager    Role = "manager"
	RoleOwner      Role = "owner"
	RoleSuperAdmin Role = "superAdmin"
)

// Level returns the role's rank, Staff lowest. Unknown roles rank below
// Staff.
func (r Role) Level() int {
	switch r {
	case RoleStaff:
		return 1
	case RoleManager:
		return 2
	case RoleOwner:
		return 3
	case RoleSuperAdmin:
		return 4
	}
	return 0
}

// AtLeast reports whether r ranks at or above other.
func (r Role) AtLeast(other Role) bool {
	return r.Level() >= other.Level()
}

// Status is the four-state progress vocabulary. The strings are persisted
// and shared with dashboards; keep them verbatim.
type Status string

const (
	StatusNotStarted Status = "Not Started"
	StatusStarted    Status = "Started"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// deriveStatus maps completion counts onto the status machine. "Started" is
// collapsed into "In Progress": it survives as an accepted stored value but
// is never produced by a recompute. Completed can regress to In Progress
// when a curriculum grows after completion; that is recompute-on-read
// working as intended.
func deriveStatus(completed, total int) Status {
	switch {
	case total > 0 && completed >= total:
		return StatusCompleted
	case completed > 0:
		return StatusInProgress
	default:
		return StatusNotStarted
	}
}

// percent is the rounded completion percentage.
func percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// User is a brand employee with course assignments. Assignments create the
// progress records implicitly; unassigning removes them.
type User struct {
	ID                string    `json:"id"`
	BrandID           string    `json:"brand_id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Role              Role      `json:"role"`
	TeamID            string    `json:"team_id,omitempty"`
	AssignedCourseIDs []string  `json:"assigned_course_ids"`
	CreatedAt         time.Time `json:"created_at"`
}

// Record is one user's ledger entry for one course.
type Record struct {
	UserID         string    `json:"user_id"`
	CourseID       string    `json:"course_id"`
	CompletedItems []string  `json:"completed_items"`
	Status         Status    `json:"status"`
	Progress       int       `json:"progress"`
	LastUpdated    time.Time `json:"last_updated"`
}

// Overall is a user's progress across all assigned courses. Courses that no
// longer resolve are excluded from both sides of the ratio.
type Overall struct {
	UserID         string `json:"user_id"`
	CompletedItems int    `json:"completed_items"`
	TotalItems     int    `json:"total_items"`
	Progress       int    `json:"progress"`
}

// TeamOverview rolls the per-user values up for one team's dashboard.
type TeamOverview struct {
	BrandID        string    `json:"brand_id"`
	TeamID         string    `json:"team_id"`
	Members        []Overall `json:"members"`
	CompletedItems int       `json:"completed_items"`
	TotalItems     int       `json:"total_items"`
	Progress       int       `json:"progress"`
}
