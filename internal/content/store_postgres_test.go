package content_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/skilldesk/skilldesk/internal/content"
	"github.com/skilldesk/skilldesk/internal/curriculum"
	"github.com/skilldesk/skilldesk/internal/platform/database"
	"github.com/skilldesk/skilldesk/internal/retry"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("skilldesk"),
		tcpostgres.WithUsername("skilldesk"),
		tcpostgres.WithPassword("skilldesk"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	db, err := database.New(ctx, url, database.PoolConfig{MaxConns: 5, MinConns: 1})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(db.Close)

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db.Pool
}

func TestPostgresStore_Integration(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t)

	store, err := content.NewPostgresStore(pool, nil)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}

	t.Run("course lifecycle", func(t *testing.T) {
		id, err := store.CreateCourse(ctx, content.Course{
			Tier:       content.TierGlobal,
			Title:      "Onboarding",
			Curriculum: []string{"lesson-a", "quiz-b"},
		})
		if err != nil {
			t.Fatalf("CreateCourse() error = %v", err)
		}

		c, err := store.GetCourse(ctx, content.GlobalScope(), id)
		if err != nil {
			t.Fatalf("GetCourse() error = %v", err)
		}
		if !slices.Equal(c.Curriculum, []string{"lesson-a", "quiz-b"}) {
			t.Errorf("Curriculum = %v", c.Curriculum)
		}

		if err := store.ReplaceCurriculum(ctx, content.GlobalScope(), id, []string{"quiz-b"}); err != nil {
			t.Fatalf("ReplaceCurriculum() error = %v", err)
		}
		c, _ = store.GetCourse(ctx, content.GlobalScope(), id)
		if !slices.Equal(c.Curriculum, []string{"quiz-b"}) {
			t.Errorf("Curriculum after replace = %v", c.Curriculum)
		}

		if err := store.SoftDeleteCourse(ctx, content.GlobalScope(), id); err != nil {
			t.Fatalf("SoftDeleteCourse() error = %v", err)
		}
		if _, err := store.GetCourse(ctx, content.GlobalScope(), id); !errors.Is(err, content.ErrNotFound) {
			t.Errorf("GetCourse() after delete error = %v, want ErrNotFound", err)
		}
	})

	t.Run("delete lesson cascades", func(t *testing.T) {
		lessonID, err := store.CreateLesson(ctx, content.Lesson{Tier: content.TierGlobal, Title: "Doomed"})
		if err != nil {
			t.Fatalf("CreateLesson() error = %v", err)
		}
		ref := "lesson-" + lessonID

		c1, _ := store.CreateCourse(ctx, content.Course{
			Tier: content.TierGlobal, Title: "First", Curriculum: []string{ref, "quiz-keep"},
		})
		c2, _ := store.CreateCourse(ctx, content.Course{
			Tier: content.TierGlobal, Title: "Second", Curriculum: []string{ref},
		})

		if err := store.DeleteLesson(ctx, content.GlobalScope(), lessonID); err != nil {
			t.Fatalf("DeleteLesson() error = %v", err)
		}

		got, _ := store.GetCourse(ctx, content.GlobalScope(), c1)
		if !slices.Equal(got.Curriculum, []string{"quiz-keep"}) {
			t.Errorf("course 1 curriculum = %v", got.Curriculum)
		}
		got, _ = store.GetCourse(ctx, content.GlobalScope(), c2)
		if len(got.Curriculum) != 0 {
			t.Errorf("course 2 curriculum = %v, want empty", got.Curriculum)
		}

		if _, err := store.GetLesson(ctx, content.GlobalScope(), lessonID); !errors.Is(err, content.ErrNotFound) {
			t.Errorf("GetLesson() after delete error = %v, want ErrNotFound", err)
		}
		if err := store.DeleteLesson(ctx, content.GlobalScope(), lessonID); !errors.Is(err, content.ErrNotFound) {
			t.Errorf("second DeleteLesson() error = %v, want ErrNotFound", err)
		}

		live, err := store.ResolveItem(ctx, curriculum.ItemRef{Kind: curriculum.KindLesson, ID: lessonID})
		if err != nil {
			t.Fatalf("ResolveItem() error = %v", err)
		}
		if live {
			t.Error("ResolveItem() = true for deleted lesson")
		}
	})

	t.Run("question rewrites bump version", func(t *testing.T) {
		quizID, err := store.CreateQuiz(ctx, content.Quiz{Tier: content.TierGlobal, Title: "Checkpoint"})
		if err != nil {
			t.Fatalf("CreateQuiz() error = %v", err)
		}

		qID, err := store.AddQuestion(ctx, content.GlobalScope(), quizID, validQuestion(""))
		if err != nil {
			t.Fatalf("AddQuestion() error = %v", err)
		}

		quiz, err := store.GetQuiz(ctx, content.GlobalScope(), quizID)
		if err != nil {
			t.Fatalf("GetQuiz() error = %v", err)
		}
		if len(quiz.Questions) != 1 || quiz.Version != 2 {
			t.Errorf("questions = %d, version = %d; want 1, 2", len(quiz.Questions), quiz.Version)
		}

		edited := validQuestion(qID)
		edited.Text = "Edited"
		if err := store.UpdateQuestion(ctx, content.GlobalScope(), quizID, edited); err != nil {
			t.Fatalf("UpdateQuestion() error = %v", err)
		}
		if err := store.DeleteQuestion(ctx, content.GlobalScope(), quizID, qID); err != nil {
			t.Fatalf("DeleteQuestion() error = %v", err)
		}

		quiz, _ = store.GetQuiz(ctx, content.GlobalScope(), quizID)
		if len(quiz.Questions) != 0 || quiz.Version != 4 {
			t.Errorf("questions = %d, version = %d; want 0, 4", len(quiz.Questions), quiz.Version)
		}
	})

	t.Run("concurrent question edits all land", func(t *testing.T) {
		// A tight retry budget with fast backoff; every conflicting editor
		// should land on a re-read within a few attempts.
		fast, err := content.NewPostgresStore(pool, retry.New(retry.Config{
			MaxAttempts: 10,
			BaseDelay:   time.Millisecond,
			MaxDelay:    10 * time.Millisecond,
		}))
		if err != nil {
			t.Fatalf("NewPostgresStore() error = %v", err)
		}

		quizID, err := fast.CreateQuiz(ctx, content.Quiz{Tier: content.TierGlobal, Title: "Contended"})
		if err != nil {
			t.Fatalf("CreateQuiz() error = %v", err)
		}

		const editors = 6
		errs := make(chan error, editors)
		for i := 0; i < editors; i++ {
			go func() {
				_, err := fast.AddQuestion(ctx, content.GlobalScope(), quizID, validQuestion(""))
				errs <- err
			}()
		}
		for i := 0; i < editors; i++ {
			if err := <-errs; err != nil {
				t.Errorf("AddQuestion() error = %v", err)
			}
		}

		quiz, err := fast.GetQuiz(ctx, content.GlobalScope(), quizID)
		if err != nil {
			t.Fatalf("GetQuiz() error = %v", err)
		}
		if len(quiz.Questions) != editors {
			t.Errorf("questions = %d, want %d", len(quiz.Questions), editors)
		}
		if quiz.Version != 1+editors {
			t.Errorf("version = %d, want %d", quiz.Version, 1+editors)
		}
	})

	t.Run("brand partition isolation", func(t *testing.T) {
		id, err := store.CreateCourse(ctx, content.Course{
			Tier: content.TierBrand, BrandID: "acme", Title: "Private",
		})
		if err != nil {
			t.Fatalf("CreateCourse() error = %v", err)
		}

		if _, err := store.GetCourse(ctx, content.BrandScope("other"), id); !errors.Is(err, content.ErrNotFound) {
			t.Errorf("GetCourse(other brand) error = %v, want ErrNotFound", err)
		}

		c, err := store.ResolveCourse(ctx, "acme", id)
		if err != nil {
			t.Fatalf("ResolveCourse() error = %v", err)
		}
		if c.BrandID != "acme" {
			t.Errorf("BrandID = %q", c.BrandID)
		}
	})

	t.Run("program membership", func(t *testing.T) {
		id, err := store.CreateProgram(ctx, content.Program{Title: "Starter", PriceCents: 4900, Currency: "USD"})
		if err != nil {
			t.Fatalf("CreateProgram() error = %v", err)
		}
		if err := store.AddProgramCourse(ctx, id, "crs1"); err != nil {
			t.Fatalf("AddProgramCourse() error = %v", err)
		}
		if err := store.AddProgramCourse(ctx, id, "crs1"); err != nil {
			t.Fatalf("AddProgramCourse() again error = %v", err)
		}
		p, err := store.GetProgram(ctx, id)
		if err != nil {
			t.Fatalf("GetProgram() error = %v", err)
		}
		if !slices.Equal(p.CourseIDs, []string{"crs1"}) {
			t.Errorf("CourseIDs = %v, want [crs1]", p.CourseIDs)
		}
	})
}
