package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skilldesk/skilldesk/internal/curriculum"
	"github.com/skilldesk/skilldesk/internal/retry"
)

const dbTimeout = 5 * time.Second

// PostgresStore is the pgx-backed catalog. Every operation runs under the
// retry executor; deletes use the reduced destructive budget.
type PostgresStore struct {
	pool *pgxpool.Pool
	exec *retry.Executor
}

// NewPostgresStore creates a PostgreSQL-backed content store.
func NewPostgresStore(pool *pgxpool.Pool, exec *retry.Executor) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	if exec == nil {
		exec = retry.New(retry.Config{})
	}
	return &PostgresStore{pool: pool, exec: exec}, nil
}

func (s *PostgresStore) CreateProgram(ctx context.Context, p Program) (string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CourseIDs == nil {
		p.CourseIDs = []string{}
	}
	err := s.exec.Do(ctx, "create program", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		_, err := s.pool.Exec(ctx,
			`INSERT INTO programs (id, title, price_cents, currency, course_ids)
			 VALUES ($1, $2, $3, $4, $5)`,
			p.ID, p.Title, p.PriceCents, p.Currency, p.CourseIDs,
		)
		if err != nil {
			return fmt.Errorf("insert program: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

func (s *PostgresStore) GetProgram(ctx context.Context, id string) (*Program, error) {
	var p Program
	err := s.exec.Do(ctx, "get program", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		err := s.pool.QueryRow(ctx,
			`SELECT id, title, price_cents, currency, course_ids, created_at, updated_at
			 FROM programs
			 WHERE id = $1 AND NOT deleted`,
			id,
		).Scan(&p.ID, &p.Title, &p.PriceCents, &p.Currency, &p.CourseIDs, &p.CreatedAt, &p.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return retry.Permanent(ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get program: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) ListPrograms(ctx context.Context) ([]Program, error) {
	var out []Program
	err := s.exec.Do(ctx, "list programs", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		rows, err := s.pool.Query(ctx,
			`SELECT id, title, price_cents, currency, course_ids, created_at, updated_at
			 FROM programs
			 WHERE NOT deleted
			 ORDER BY created_at ASC`,
		)
		if err != nil {
			return fmt.Errorf("query programs: %w", err)
		}
		defer rows.Close()

		out = []Program{}
		for rows.Next() {
			var p Program
			if err := rows.Scan(&p.ID, &p.Title, &p.PriceCents, &p.Currency, &p.CourseIDs, &p.CreatedAt, &p.UpdatedAt); err != nil {
				return fmt.Errorf("scan program: %w", err)
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) UpdateProgram(ctx context.Context, id string, patch ProgramPatch) error {
	return s.exec.Do(ctx, "update program", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		cmd, err := s.pool.Exec(ctx,
			`UPDATE programs SET
			   title = COALESCE($2, title),
			   price_cents = COALESCE($3, price_cents),
			   currency = COALESCE($4, currency),
			   updated_at = now()
			 WHERE id = $1 AND NOT deleted`,
			id, patch.Title, patch.PriceCents, patch.Currency,
		)
		if err != nil {
			return fmt.Errorf("update program: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return retry.Permanent(ErrNotFound)
		}
		return nil
	})
}

func (s *PostgresStore) AddProgramCourse(ctx context.Context, id, courseID string) error {
	return s.exec.Do(ctx, "add program course", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		cmd, err := s.pool.Exec(ctx,
			`UPDATE programs SET
			   course_ids = CASE
			     WHEN course_ids @> ARRAY[$2::text] THEN course_ids
			     ELSE array_append(course_ids, $2)
			   END,
			   updated_at = now()
			 WHERE id = $1 AND NOT deleted`,
			id, courseID,
		)
		if err != nil {
			return fmt.Errorf("add program course: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return retry.Permanent(ErrNotFound)
		}
		return nil
	})
}

func (s *PostgresStore) RemoveProgramCourse(ctx context.Context, id, courseID string) error {
	return s.exec.Do(ctx, "remove program course", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		cmd, err := s.pool.Exec(ctx,
			`UPDATE programs SET
			   course_ids = array_remove(course_ids, $2),
			   updated_at = now()
			 WHERE id = $1 AND NOT deleted`,
			id, courseID,
		)
		if err != nil {
			return fmt.Errorf("remove program course: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return retry.Permanent(ErrNotFound)
		}
		return nil
	})
}

func (s *PostgresStore) SoftDeleteProgram(ctx context.Context, id string) error {
	return s.exec.DoDestructive(ctx, "delete program", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		cmd, err := s.pool.Exec(ctx,
			`UPDATE programs SET deleted = true, deleted_at = now()
			 WHERE id = $1 AND NOT deleted`,
			id,
		)
		if err != nil {
			return fmt.Errorf("delete program: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return retry.Permanent(ErrNotFound)
		}
		return nil
	})
}

const courseColumns = `id, tier, brand_id, title, short_desc, description, cover_url, curriculum, created_at, updated_at`

func scanCourse(row pgx.Row) (*Course, error) {
	var c Course
	err := row.Scan(&c.ID, &c.Tier, &c.BrandID, &c.Title, &c.ShortDesc, &c.Description,
		&c.CoverURL, &c.Curriculum, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) CreateCourse(ctx context.Context, c Course) (string, error) {
	if err := validateCurriculum(c.Scope(), c.Curriculum); err != nil {
		return "", err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Curriculum == nil {
		c.Curriculum = []string{}
	}
	err := s.exec.Do(ctx, "create course", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		_, err := s.pool.Exec(ctx,
			`INSERT INTO courses (id, tier, brand_id, title, short_desc, description, cover_url, curriculum)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, c.Tier, c.BrandID, c.Title, c.ShortDesc, c.Description, c.CoverURL, c.Curriculum,
		)
		if err != nil {
			return fmt.Errorf("insert course: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

func (s *PostgresStore) GetCourse(ctx context.Context, scope Scope, id string) (*Course, error) {
	var c *Course
	err := s.exec.Do(ctx, "get course", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		var err error
		c, err = scanCourse(s.pool.QueryRow(ctx,
			`SELECT `+courseColumns+`
			 FROM courses
			 WHERE id = $1 AND tier = $2 AND brand_id = $3 AND NOT deleted`,
			id, scope.Tier, scope.BrandID,
		))
		if errors.Is(err, pgx.ErrNoRows) {
			return retry.Permanent(ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get course: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *PostgresStore) ListCourses(ctx context.Context, scope Scope) ([]Course, error) {
	var out []Course
	err := s.exec.Do(ctx, "list courses", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		rows, err := s.pool.Query(ctx,
			`SELECT `+courseColumns+`
			 FROM courses
			 WHERE tier = $1 AND brand_id = $2 AND NOT deleted
			 ORDER BY created_at ASC`,
			scope.Tier, scope.BrandID,
		)
		if err != nil {
			return fmt.Errorf("query courses: %w", err)
		}
		defer rows.Close()

		out = []Course{}
		for rows.Next() {
			c, err := scanCourse(rows)
			if err != nil {
				return fmt.Errorf("scan course: %w", err)
			}
			out = append(out, *c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) SearchCourses(ctx context.Context, scope Scope, query string) ([]Course, error) {
	all, err := s.ListCourses(ctx, scope)
	if err != nil {
		return nil, err
	}
	return filterCoursesByTitle(all, query), nil
}

func (s *PostgresStore) UpdateCourse(ctx context.Context, scope Scope, id string, patch CoursePatch) error {
	return s.exec.Do(ctx, "update course", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		cmd, err := s.pool.Exec(ctx,
			`UPDATE courses SET
			   title = COALESCE($4, title),
			   short_desc = COALESCE($5, short_desc),
			   description = COALESCE($6, description),
			   cover_url = CASE WHEN $8 THEN '' ELSE COALESCE($7, cover_url) END,
			   updated_at = now()
			 WHERE id = $1 AND tier = $2 AND brand_id = $3 AND NOT deleted`,
			id, scope.Tier, scope.BrandID,
			patch.Title, patch.ShortDesc, patch.Description, patch.CoverURL, patch.ClearCoverURL,
		)
		if err != nil {
			return fmt.Errorf("update course: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return retry.Permanent(ErrNotFound)
		}
		return nil
	})
}

func (s *PostgresStore) ReplaceCurriculum(ctx context.Context, scope Scope, id string, refs []string) error {
	if err := validateCurriculum(scope, refs); err != nil {
		return err
	}
	return s.exec.Do(ctx, "replace curriculum", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		cmd, err := s.pool.Exec(ctx,
			`UPDATE courses SET curriculum = $4::text[], updated_at = now()
			 WHERE id = $1 AND tier = $2 AND brand_id = $3 AND NOT deleted`,
			id, scope.Tier, scope.BrandID, refs,
		)
		if err != nil {
			return fmt.Errorf("replace curriculum: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return retry.Permanent(ErrNotFound)
		}
		return nil
	})
}

func (s *PostgresStore) SoftDeleteCourse(ctx context.Context, scope Scope, id string) error {
	return s.exec.DoDestructive(ctx, "delete course", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		cmd, err := s.pool.Exec(ctx,
			`UPDATE courses SET deleted = true, deleted_at = now()
			 WHERE id = $1 AND tier = $2 AND brand_id = $3 AND NOT deleted`,
			id, scope.Tier, scope.BrandID,
		)
		if err != nil {
			return fmt.Errorf("delete course: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return retry.Permanent(ErrNotFound)
		}
		return nil
	})
}

func (s *PostgresStore) ResolveCourse(ctx context.Context, brandID, id string) (*Course, error) {
	var c *Course
	err := s.exec.Do(ctx, "resolve course", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		// IDs are unique across partitions; the brand guard only keeps one
		// brand from resolving another brand's private course.
		var err error
		c, err = scanCourse(s.pool.QueryRow(ctx,
			`SELECT `+courseColumns+`
			 FROM courses
			 WHERE id = $1 AND NOT deleted AND (brand_id = '' OR brand_id = $2)`,
			id, brandID,
		))
		if errors.Is(err, pgx.ErrNoRows) {
			return retry.Permanent(ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("resolve course: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *PostgresStore) CreateLesson(ctx context.Context, l Lesson) (string, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	err := s.exec.Do(ctx, "create lesson", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		_, err := s.pool.Exec(ctx,
			`INSERT INTO lessons (id, tier, brand_id, title, body, media_url)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			l.ID, l.Tier, l.BrandID, l.Title, l.Body, l.MediaURL,
		)
		if err != nil {
			return fmt.Errorf("insert lesson: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return l.ID, nil
}

func (s *PostgresStore) GetLesson(ctx context.Context, scope Scope, id string) (*Lesson, error) {
	var l Lesson
	err := s.exec.Do(ctx, "get lesson", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		err := s.pool.QueryRow(ctx,
			`SELECT id, tier, brand_id, title, body, media_url, created_at, updated_at
			 FROM lessons
			 WHERE id = $1 AND tier = $2 AND brand_id = $3 AND NOT deleted`,
			id, scope.Tier, scope.BrandID,
		).Scan(&l.ID, &l.Tier, &l.BrandID, &l.Title, &l.Body, &l.MediaURL, &l.CreatedAt, &l.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return retry.Permanent(ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get lesson: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *PostgresStore) ListLessons(ctx context.Context, scope Scope) ([]Lesson, error) {
	var out []Lesson
	err := s.exec.Do(ctx, "list lessons", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		rows, err := s.pool.Query(ctx,
			`SELECT id, tier, brand_id, title, body, media_url, created_at, updated_at
			 FROM lessons
			 WHERE tier = $1 AND brand_id = $2 AND NOT deleted
			 ORDER BY created_at ASC`,
			scope.Tier, scope.BrandID,
		)
		if err != nil {
			return fmt.Errorf("query lessons: %w", err)
		}
		defer rows.Close()

		out = []Lesson{}
		for rows.Next() {
			var l Lesson
			if err := rows.Scan(&l.ID, &l.Tier, &l.BrandID, &l.Title, &l.Body, &l.MediaURL, &l.CreatedAt, &l.UpdatedAt); err != nil {
				return fmt.Errorf("scan lesson: %w", err)
			}
			out = append(out, l)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) UpdateLesson(ctx context.Context, scope Scope, id string, patch LessonPatch) error {
	return s.exec.Do(ctx, "update lesson", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		cmd, err := s.pool.Exec(ctx,
			`UPDATE lessons SET
			   title = COALESCE($4, title),
			   body = COALESCE($5, body),
			   media_url = CASE WHEN $7 THEN '' ELSE COALESCE($6, media_url) END,
			   updated_at = now()
			 WHERE id = $1 AND tier = $2 AND brand_id = $3 AND NOT deleted`,
			id, scope.Tier, scope.BrandID,
			patch.Title, patch.Body, patch.MediaURL, patch.ClearMediaURL,
		)
		if err != nil {
			return fmt.Errorf("update lesson: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return retry.Permanent(ErrNotFound)
		}
		return nil
	})
}

// DeleteLesson runs the cascading cleanup and the soft-delete as one batch
// inside one transaction: every live course in the partition loses the
// reference first, then the lesson is retired. A failure rolls the whole
// thing back, so a deleted lesson can never leave a dangling reference.
func (s *PostgresStore) DeleteLesson(ctx context.Context, scope Scope, id string) error {
	ref := curriculum.ItemRef{Kind: scope.LessonKind(), ID: id}.String()
	return s.deleteItem(ctx, "delete lesson", "lessons", scope, id, ref)
}

// DeleteQuiz mirrors DeleteLesson.
func (s *PostgresStore) DeleteQuiz(ctx context.Context, scope Scope, id string) error {
	ref := curriculum.ItemRef{Kind: scope.QuizKind(), ID: id}.String()
	return s.deleteItem(ctx, "delete quiz", "quizzes", scope, id, ref)
}

func (s *PostgresStore) deleteItem(ctx context.Context, op, table string, scope Scope, id, ref string) error {
	return s.exec.DoDestructive(ctx, op, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()

		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin %s: %w", op, err)
		}
		defer tx.Rollback(ctx)

		var exists bool
		err = tx.QueryRow(ctx,
			`SELECT true FROM `+table+`
			 WHERE id = $1 AND tier = $2 AND brand_id = $3 AND NOT deleted`,
			id, scope.Tier, scope.BrandID,
		).Scan(&exists)
		if errors.Is(err, pgx.ErrNoRows) {
			return retry.Permanent(ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("check %s: %w", op, err)
		}

		batch := &pgx.Batch{}
		batch.Queue(
			`UPDATE courses SET curriculum = array_remove(curriculum, $1), updated_at = now()
			 WHERE tier = $2 AND brand_id = $3 AND NOT deleted AND curriculum @> ARRAY[$1::text]`,
			ref, scope.Tier, scope.BrandID,
		)
		batch.Queue(
			`UPDATE `+table+` SET deleted = true, deleted_at = now()
			 WHERE id = $1 AND tier = $2 AND brand_id = $3 AND NOT deleted`,
			id, scope.Tier, scope.BrandID,
		)

		br := tx.SendBatch(ctx, batch)
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("cleanup references: %w", err)
		}
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("soft delete: %w", err)
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close batch: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit %s: %w", op, err)
		}
		return nil
	})
}

func (s *PostgresStore) CreateQuiz(ctx context.Context, q Quiz) (string, error) {
	for i := range q.Questions {
		if err := ValidateQuestion(q.Questions[i]); err != nil {
			return "", err
		}
		if q.Questions[i].ID == "" {
			q.Questions[i].ID = uuid.NewString()
		}
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Questions == nil {
		q.Questions = []Question{}
	}
	payload, err := json.Marshal(q.Questions)
	if err != nil {
		return "", fmt.Errorf("marshal questions: %w", err)
	}
	err = s.exec.Do(ctx, "create quiz", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		_, err := s.pool.Exec(ctx,
			`INSERT INTO quizzes (id, tier, brand_id, title, questions, version)
			 VALUES ($1, $2, $3, $4, $5, 1)`,
			q.ID, q.Tier, q.BrandID, q.Title, payload,
		)
		if err != nil {
			return fmt.Errorf("insert quiz: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return q.ID, nil
}

func (s *PostgresStore) GetQuiz(ctx context.Context, scope Scope, id string) (*Quiz, error) {
	var q Quiz
	err := s.exec.Do(ctx, "get quiz", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		var payload []byte
		err := s.pool.QueryRow(ctx,
			`SELECT id, tier, brand_id, title, questions, version, created_at, updated_at
			 FROM quizzes
			 WHERE id = $1 AND tier = $2 AND brand_id = $3 AND NOT deleted`,
			id, scope.Tier, scope.BrandID,
		).Scan(&q.ID, &q.Tier, &q.BrandID, &q.Title, &payload, &q.Version, &q.CreatedAt, &q.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return retry.Permanent(ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get quiz: %w", err)
		}
		if err := json.Unmarshal(payload, &q.Questions); err != nil {
			return retry.Permanent(fmt.Errorf("unmarshal questions: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *PostgresStore) ListQuizzes(ctx context.Context, scope Scope) ([]Quiz, error) {
	var out []Quiz
	err := s.exec.Do(ctx, "list quizzes", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		rows, err := s.pool.Query(ctx,
			`SELECT id, tier, brand_id, title, questions, version, created_at, updated_at
			 FROM quizzes
			 WHERE tier = $1 AND brand_id = $2 AND NOT deleted
			 ORDER BY created_at ASC`,
			scope.Tier, scope.BrandID,
		)
		if err != nil {
			return fmt.Errorf("query quizzes: %w", err)
		}
		defer rows.Close()

		out = []Quiz{}
		for rows.Next() {
			var q Quiz
			var payload []byte
			if err := rows.Scan(&q.ID, &q.Tier, &q.BrandID, &q.Title, &payload, &q.Version, &q.CreatedAt, &q.UpdatedAt); err != nil {
				return fmt.Errorf("scan quiz: %w", err)
			}
			if err := json.Unmarshal(payload, &q.Questions); err != nil {
				return retry.Permanent(fmt.Errorf("unmarshal questions: %w", err))
			}
			out = append(out, q)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) UpdateQuiz(ctx context.Context, scope Scope, id string, patch QuizPatch) error {
	return s.exec.Do(ctx, "update quiz", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		cmd, err := s.pool.Exec(ctx,
			`UPDATE quizzes SET title = COALESCE($4, title), updated_at = now()
			 WHERE id = $1 AND tier = $2 AND brand_id = $3 AND NOT deleted`,
			id, scope.Tier, scope.BrandID, patch.Title,
		)
		if err != nil {
			return fmt.Errorf("update quiz: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return retry.Permanent(ErrNotFound)
		}
		return nil
	})
}

func (s *PostgresStore) AddQuestion(ctx context.Context, scope Scope, quizID string, question Question) (string, error) {
	if err := ValidateQuestion(question); err != nil {
		return "", err
	}
	if question.ID == "" {
		question.ID = uuid.NewString()
	}
	err := s.rewriteQuestions(ctx, "add question", scope, quizID, func(questions []Question) ([]Question, error) {
		return append(questions, question), nil
	})
	if err != nil {
		return "", err
	}
	return question.ID, nil
}

func (s *PostgresStore) UpdateQuestion(ctx context.Context, scope Scope, quizID string, question Question) error {
	if err := ValidateQuestion(question); err != nil {
		return err
	}
	return s.rewriteQuestions(ctx, "update question", scope, quizID, func(questions []Question) ([]Question, error) {
		for i := range questions {
			if questions[i].ID == question.ID {
				questions[i] = question
				return questions, nil
			}
		}
		return nil, ErrNotFound
	})
}

func (s *PostgresStore) DeleteQuestion(ctx context.Context, scope Scope, quizID, questionID string) error {
	return s.rewriteQuestions(ctx, "delete question", scope, quizID, func(questions []Question) ([]Question, error) {
		for i := range questions {
			if questions[i].ID == questionID {
				return append(questions[:i], questions[i+1:]...), nil
			}
		}
		return nil, ErrNotFound
	})
}

// rewriteQuestions is the embedded-array edit path: read the whole array,
// splice in Go, write the whole array back guarded by the quiz version. A
// concurrent editor makes the guarded write miss; the executor then re-runs
// the whole closure against the fresh array, so mergeable edits land on the
// next attempt. ErrContention reaches the caller only once the attempt
// budget is spent.
func (s *PostgresStore) rewriteQuestions(ctx context.Context, op string, scope Scope, quizID string, edit func([]Question) ([]Question, error)) error {
	return s.exec.Do(ctx, op, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()

		var payload []byte
		var version int64
		err := s.pool.QueryRow(ctx,
			`SELECT questions, version FROM quizzes
			 WHERE id = $1 AND tier = $2 AND brand_id = $3 AND NOT deleted`,
			quizID, scope.Tier, scope.BrandID,
		).Scan(&payload, &version)
		if errors.Is(err, pgx.ErrNoRows) {
			return retry.Permanent(ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("read questions: %w", err)
		}

		var questions []Question
		if err := json.Unmarshal(payload, &questions); err != nil {
			return retry.Permanent(fmt.Errorf("unmarshal questions: %w", err))
		}

		edited, err := edit(questions)
		if err != nil {
			return retry.Permanent(err)
		}
		if edited == nil {
			edited = []Question{}
		}

		out, err := json.Marshal(edited)
		if err != nil {
			return retry.Permanent(fmt.Errorf("marshal questions: %w", err))
		}

		cmd, err := s.pool.Exec(ctx,
			`UPDATE quizzes SET questions = $4, version = version + 1, updated_at = now()
			 WHERE id = $1 AND tier = $2 AND brand_id = $3 AND NOT deleted AND version = $5`,
			quizID, scope.Tier, scope.BrandID, out, version,
		)
		if err != nil {
			return fmt.Errorf("write questions: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			// Version moved underneath us; retryable, the next attempt
			// re-reads and splices the fresh array.
			return fmt.Errorf("%w: quiz %s", ErrContention, quizID)
		}
		return nil
	})
}

func (s *PostgresStore) ResolveItem(ctx context.Context, ref curriculum.ItemRef) (bool, error) {
	table := "lessons"
	if ref.Kind.IsQuiz() {
		table = "quizzes"
	}
	tier := TierGlobal
	if ref.Kind.BrandScoped() {
		tier = TierBrand
	}

	var live bool
	err := s.exec.Do(ctx, "resolve item", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		err := s.pool.QueryRow(ctx,
			`SELECT NOT deleted FROM `+table+` WHERE id = $1 AND tier = $2`,
			ref.ID, tier,
		).Scan(&live)
		if errors.Is(err, pgx.ErrNoRows) {
			live = false
			return nil
		}
		if err != nil {
			return fmt.Errorf("resolve item: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return live, nil
}
