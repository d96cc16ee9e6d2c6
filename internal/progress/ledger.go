package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/skilldesk/skilldesk/internal/content"
	"github.com/skilldesk/skilldesk/internal/events"
)

// CourseResolver finds a course by ID, trying the caller's brand partition
// before the global library. Implemented by the content store.
type CourseResolver interface {
	ResolveCourse(ctx context.Context, brandID, courseID string) (*content.Course, error)
}

// LedgerConfig holds dependencies for the ledger.
type LedgerConfig struct {
	Store   Store
	Courses CourseResolver
	Sink    events.Sink // optional
}

// Ledger records completions and serves recomputed progress.
type Ledger struct {
	store   Store
	courses CourseResolver
	sink    events.Sink
}

// NewLedger creates a ledger.
func NewLedger(cfg LedgerConfig) *Ledger {
	sink := cfg.Sink
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Ledger{
		store:   cfg.Store,
		courses: cfg.Courses,
		sink:    sink,
	}
}

// RecordCompletion marks the curriculum item at itemIndex complete for the
// user. The index is translated to the reference string and added to the
// completed set idempotently; percentage and status are recomputed against
// the curriculum as resolved right now.
func (l *Ledger) RecordCompletion(ctx context.Context, userID, courseID string, itemIndex int) (*Record, error) {
	user, err := l.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	course, err := l.courses.ResolveCourse(ctx, user.BrandID, courseID)
	if err != nil {
		return nil, fmt.Errorf("resolve course: %w", err)
	}

	if itemIndex < 0 || itemIndex >= len(course.Curriculum) {
		return nil, fmt.Errorf("%w: index %d, curriculum length %d",
			ErrIndexOutOfRange, itemIndex, len(course.Curriculum))
	}
	ref := course.Curriculum[itemIndex]

	completed := []string{}
	if existing, err := l.store.GetRecord(ctx, userID, courseID); err == nil {
		completed = existing.CompletedItems
	} else if !errors.Is(err, content.ErrNotFound) {
		return nil, fmt.Errorf("read progress record: %w", err)
	}
	if !slices.Contains(completed, ref) {
		completed = append(completed, ref)
	}

	k := intersectCount(completed, course.Curriculum)
	pct := percent(k, len(course.Curriculum))
	status := deriveStatus(k, len(course.Curriculum))
	now := time.Now()

	if err := l.store.UpsertCompletion(ctx, userID, courseID, ref, pct, status, now); err != nil {
		return nil, err
	}

	rec := &Record{
		UserID:         userID,
		CourseID:       courseID,
		CompletedItems: completed,
		Status:         status,
		Progress:       pct,
		LastUpdated:    now,
	}

	slog.Info("completion recorded",
		"user_id", userID,
		"course_id", courseID,
		"item_ref", ref,
		"progress", pct,
		"status", status,
	)
	l.sink.Publish(events.ProgressEvent{
		UserID:     userID,
		CourseID:   courseID,
		ItemRef:    ref,
		Progress:   pct,
		Status:     string(status),
		OccurredAt: now,
	})
	return rec, nil
}

// CourseProgress reads the user's record for one course, recomputing the
// percentage and status from the current curriculum. Only references that
// still appear in the curriculum count toward the numerator, so a cleanup
// shrinking the course shrinks both sides of the ratio. If the course cannot
// be resolved, or its curriculum is empty, the stored values come back
// unchanged — the ledger is monotone under read failures.
func (l *Ledger) CourseProgress(ctx context.Context, userID, courseID string) (*Record, error) {
	rec, err := l.store.GetRecord(ctx, userID, courseID)
	if errors.Is(err, content.ErrNotFound) {
		rec = &Record{
			UserID:         userID,
			CourseID:       courseID,
			CompletedItems: []string{},
			Status:         StatusNotStarted,
		}
	} else if err != nil {
		return nil, err
	}

	user, err := l.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	course, err := l.courses.ResolveCourse(ctx, user.BrandID, courseID)
	if err != nil || len(course.Curriculum) == 0 {
		return rec, nil
	}

	k := intersectCount(rec.CompletedItems, course.Curriculum)
	rec.Progress = percent(k, len(course.Curriculum))
	rec.Status = deriveStatus(k, len(course.Curriculum))
	return rec, nil
}

// intersectCount counts how many distinct curriculum entries appear in the
// completed set. Counting from the curriculum side keeps stale completed
// references (pending cleanup) out of the numerator; each matched reference
// is consumed, so a reference duplicated in a curriculum counts once.
func intersectCount(completed, curriculum []string) int {
	set := make(map[string]struct{}, len(completed))
	for _, ref := range completed {
		set[ref] = struct{}{}
	}
	n := 0
	for _, ref := range curriculum {
		if _, ok := set[ref]; ok {
			delete(set, ref)
			n++
		}
	}
	return n
}
