package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skilldesk/skilldesk/internal/content"
	"github.com/skilldesk/skilldesk/internal/retry"
)

const dbTimeout = 5 * time.Second

// PostgresStore is the pgx-backed ledger store.
type PostgresStore struct {
	pool *pgxpool.Pool
	exec *retry.Executor
}

// NewPostgresStore creates a PostgreSQL-backed ledger store.
func NewPostgresStore(pool *pgxpool.Pool, exec *retry.Executor) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	if exec == nil {
		exec = retry.New(retry.Config{})
	}
	return &PostgresStore{pool: pool, exec: exec}, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u User) (string, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.AssignedCourseIDs == nil {
		u.AssignedCourseIDs = []string{}
	}
	if u.Role == "" {
		u.Role = RoleStaff
	}
	err := s.exec.Do(ctx, "create user", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		_, err := s.pool.Exec(ctx,
			`INSERT INTO users (id, brand_id, name, email, role, team_id, assigned_course_ids)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			u.ID, u.BrandID, u.Name, u.Email, u.Role, u.TeamID, u.AssignedCourseIDs,
		)
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

const userColumns = `id, brand_id, name, email, role, team_id, assigned_course_ids, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.BrandID, &u.Name, &u.Email, &u.Role, &u.TeamID, &u.AssignedCourseIDs, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*User, error) {
	var u *User
	err := s.exec.Do(ctx, "get user", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		var err error
		u, err = scanUser(s.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`,
			id,
		))
		if errors.Is(err, pgx.ErrNoRows) {
			return retry.Permanent(content.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context, brandID string) ([]User, error) {
	return s.listUsers(ctx, "list users",
		`SELECT `+userColumns+` FROM users WHERE brand_id = $1 ORDER BY created_at ASC`,
		brandID)
}

func (s *PostgresStore) ListTeamUsers(ctx context.Context, brandID, teamID string) ([]User, error) {
	return s.listUsers(ctx, "list team users",
		`SELECT `+userColumns+` FROM users WHERE brand_id = $1 AND team_id = $2 ORDER BY created_at ASC`,
		brandID, teamID)
}

func (s *PostgresStore) listUsers(ctx context.Context, op, query string, args ...any) ([]User, error) {
	var out []User
	err := s.exec.Do(ctx, op, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		rows, err := s.pool.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query users: %w", err)
		}
		defer rows.Close()

		out = []User{}
		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return fmt.Errorf("scan user: %w", err)
			}
			out = append(out, *u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) AssignCourse(ctx context.Context, userID, courseID string) error {
	return s.exec.Do(ctx, "assign course", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()

		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin assign: %w", err)
		}
		defer tx.Rollback(ctx)

		cmd, err := tx.Exec(ctx,
			`UPDATE users SET assigned_course_ids = CASE
			   WHEN assigned_course_ids @> ARRAY[$2::text] THEN assigned_course_ids
			   ELSE array_append(assigned_course_ids, $2)
			 END
			 WHERE id = $1`,
			userID, courseID,
		)
		if err != nil {
			return fmt.Errorf("assign course: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return retry.Permanent(content.ErrNotFound)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO course_progress (user_id, course_id, completed_items, status, progress, last_updated)
			 VALUES ($1, $2, '{}', $3, 0, now())
			 ON CONFLICT (user_id, course_id) DO NOTHING`,
			userID, courseID, StatusNotStarted,
		)
		if err != nil {
			return fmt.Errorf("create progress record: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit assign: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) UnassignCourse(ctx context.Context, userID, courseID string) error {
	return s.exec.DoDestructive(ctx, "unassign course", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()

		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin unassign: %w", err)
		}
		defer tx.Rollback(ctx)

		cmd, err := tx.Exec(ctx,
			`UPDATE users SET assigned_course_ids = array_remove(assigned_course_ids, $2)
			 WHERE id = $1`,
			userID, courseID,
		)
		if err != nil {
			return fmt.Errorf("unassign course: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return retry.Permanent(content.ErrNotFound)
		}

		// Hard delete; this is the one record type that is removed, not
		// soft-deleted.
		if _, err := tx.Exec(ctx,
			`DELETE FROM course_progress WHERE user_id = $1 AND course_id = $2`,
			userID, courseID,
		); err != nil {
			return fmt.Errorf("delete progress record: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit unassign: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) GetRecord(ctx context.Context, userID, courseID string) (*Record, error) {
	var rec Record
	err := s.exec.Do(ctx, "get progress record", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		err := s.pool.QueryRow(ctx,
			`SELECT user_id, course_id, completed_items, status, progress, last_updated
			 FROM course_progress
			 WHERE user_id = $1 AND course_id = $2`,
			userID, courseID,
		).Scan(&rec.UserID, &rec.CourseID, &rec.CompletedItems, &rec.Status, &rec.Progress, &rec.LastUpdated)
		if errors.Is(err, pgx.ErrNoRows) {
			return retry.Permanent(content.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get progress record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *PostgresStore) ListRecords(ctx context.Context, userID string) ([]Record, error) {
	var out []Record
	err := s.exec.Do(ctx, "list progress records", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		rows, err := s.pool.Query(ctx,
			`SELECT user_id, course_id, completed_items, status, progress, last_updated
			 FROM course_progress
			 WHERE user_id = $1`,
			userID,
		)
		if err != nil {
			return fmt.Errorf("query progress records: %w", err)
		}
		defer rows.Close()

		out = []Record{}
		for rows.Next() {
			var rec Record
			if err := rows.Scan(&rec.UserID, &rec.CourseID, &rec.CompletedItems, &rec.Status, &rec.Progress, &rec.LastUpdated); err != nil {
				return fmt.Errorf("scan progress record: %w", err)
			}
			out = append(out, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertCompletion adds the reference as a store-side set union in a single
// statement, so concurrent completions of different items both land. The
// percentage and status are last-write-wins on purpose; reads recompute.
func (s *PostgresStore) UpsertCompletion(ctx context.Context, userID, courseID, ref string, progressPct int, status Status, at time.Time) error {
	return s.exec.Do(ctx, "record completion", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		_, err := s.pool.Exec(ctx,
			`INSERT INTO course_progress (user_id, course_id, completed_items, status, progress, last_updated)
			 VALUES ($1, $2, ARRAY[$3::text], $4, $5, $6)
			 ON CONFLICT (user_id, course_id) DO UPDATE SET
			   completed_items = CASE
			     WHEN course_progress.completed_items @> ARRAY[$3::text] THEN course_progress.completed_items
			     ELSE array_append(course_progress.completed_items, $3)
			   END,
			   status = $4,
			   progress = $5,
			   last_updated = $6`,
			userID, courseID, ref, status, progressPct, at,
		)
		if err != nil {
			return fmt.Errorf("record completion: %w", err)
		}
		return nil
	})
}
