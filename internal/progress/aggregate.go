package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/skilldesk/skilldesk/internal/content"
)

// Overall computes a user's progress across every assigned course: the sum
// of counted completions over the sum of curriculum lengths. A course that
// no longer resolves is excluded from both the numerator and the denominator
// rather than dragging the ratio down as a zero.
func (l *Ledger) Overall(ctx context.Context, userID string) (*Overall, error) {
	user, err := l.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	records, err := l.store.ListRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	byCourse := make(map[string]*Record, len(records))
	for i := range records {
		byCourse[records[i].CourseID] = &records[i]
	}

	out := &Overall{UserID: userID}
	for _, courseID := range user.AssignedCourseIDs {
		course, err := l.courses.ResolveCourse(ctx, user.BrandID, courseID)
		if errors.Is(err, content.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve course %s: %w", courseID, err)
		}

		var completed []string
		if rec, ok := byCourse[courseID]; ok {
			completed = rec.CompletedItems
		}
		out.CompletedItems += intersectCount(completed, course.Curriculum)
		out.TotalItems += len(course.Curriculum)
	}

	out.Progress = percent(out.CompletedItems, out.TotalItems)
	return out, nil
}

// Team rolls per-user overall progress up for one team: the same
// completed-over-total ratio across every member, with the member breakdown
// attached for the dashboard.
func (l *Ledger) Team(ctx context.Context, brandID, teamID string) (*TeamOverview, error) {
	members, err := l.store.ListTeamUsers(ctx, brandID, teamID)
	if err != nil {
		return nil, err
	}

	out := &TeamOverview{
		BrandID: brandID,
		TeamID:  teamID,
		Members: []Overall{},
	}
	for _, u := range members {
		overall, err := l.Overall(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("aggregate user %s: %w", u.ID, err)
		}
		out.Members = append(out.Members, *overall)
		out.CompletedItems += overall.CompletedItems
		out.TotalItems += overall.TotalItems
	}

	out.Progress = percent(out.CompletedItems, out.TotalItems)
	return out, nil
}
