package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Library fixtures seed the global tier from a directory of YAML files:
// *.lesson.yaml, *.quiz.yaml and *.course.yaml. Files carry their own IDs so
// seeding is idempotent — anything already present is left alone.

type seedLesson struct {
	ID       string `yaml:"id"`
	Title    string `yaml:"title"`
	Body     string `yaml:"body"`
	MediaURL string `yaml:"media_url"`
}

type seedQuestion struct {
	ID      string   `yaml:"id"`
	Type    string   `yaml:"type"`
	Text    string   `yaml:"text"`
	Options []string `yaml:"options"`
	Correct []int    `yaml:"correct"`
}

type seedQuiz struct {
	ID        string         `yaml:"id"`
	Title     string         `yaml:"title"`
	Questions []seedQuestion `yaml:"questions"`
}

type seedCourse struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	ShortDesc   string   `yaml:"short_desc"`
	Description string   `yaml:"description"`
	Curriculum  []string `yaml:"curriculum"`
}

// SeedLibrary walks rootDir and creates any global-library content that does
// not exist yet. Courses load last so their curriculum references resolve.
func SeedLibrary(ctx context.Context, store Store, rootDir string) error {
	var courses []string
	seeded := 0

	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		switch {
		case strings.HasSuffix(path, ".lesson.yaml"):
			n, err := seedLessonFile(ctx, store, path)
			seeded += n
			return err
		case strings.HasSuffix(path, ".quiz.yaml"):
			n, err := seedQuizFile(ctx, store, path)
			seeded += n
			return err
		case strings.HasSuffix(path, ".course.yaml"):
			courses = append(courses, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking library fixtures: %w", err)
	}

	for _, path := range courses {
		n, err := seedCourseFile(ctx, store, path)
		if err != nil {
			return err
		}
		seeded += n
	}

	slog.Info("library seeded", "dir", rootDir, "created", seeded)
	return nil
}

func seedLessonFile(ctx context.Context, store Store, path string) (int, error) {
	var l seedLesson
	if ok := readSeed(path, &l); !ok || l.ID == "" || l.Title == "" {
		return 0, nil
	}
	if _, err := store.GetLesson(ctx, GlobalScope(), l.ID); err == nil {
		return 0, nil
	} else if !errors.Is(err, ErrNotFound) {
		return 0, fmt.Errorf("check lesson %s: %w", l.ID, err)
	}

	_, err := store.CreateLesson(ctx, Lesson{
		ID:       l.ID,
		Tier:     TierGlobal,
		Title:    l.Title,
		Body:     l.Body,
		MediaURL: l.MediaURL,
	})
	if err != nil {
		return 0, fmt.Errorf("seed lesson %s: %w", l.ID, err)
	}
	return 1, nil
}

func seedQuizFile(ctx context.Context, store Store, path string) (int, error) {
	var q seedQuiz
	if ok := readSeed(path, &q); !ok || q.ID == "" || q.Title == "" {
		return 0, nil
	}
	if _, err := store.GetQuiz(ctx, GlobalScope(), q.ID); err == nil {
		return 0, nil
	} else if !errors.Is(err, ErrNotFound) {
		return 0, fmt.Errorf("check quiz %s: %w", q.ID, err)
	}

	questions := make([]Question, 0, len(q.Questions))
	for _, sq := range q.Questions {
		questions = append(questions, Question{
			ID:      sq.ID,
			Type:    sq.Type,
			Text:    sq.Text,
			Options: sq.Options,
			Correct: sq.Correct,
		})
	}
	_, err := store.CreateQuiz(ctx, Quiz{
		ID:        q.ID,
		Tier:      TierGlobal,
		Title:     q.Title,
		Questions: questions,
	})
	if err != nil {
		return 0, fmt.Errorf("seed quiz %s: %w", q.ID, err)
	}
	return 1, nil
}

func seedCourseFile(ctx context.Context, store Store, path string) (int, error) {
	var c seedCourse
	if ok := readSeed(path, &c); !ok || c.ID == "" || c.Title == "" {
		return 0, nil
	}
	if _, err := store.GetCourse(ctx, GlobalScope(), c.ID); err == nil {
		return 0, nil
	} else if !errors.Is(err, ErrNotFound) {
		return 0, fmt.Errorf("check course %s: %w", c.ID, err)
	}

	_, err := store.CreateCourse(ctx, Course{
		ID:          c.ID,
		Tier:        TierGlobal,
		Title:       c.Title,
		ShortDesc:   c.ShortDesc,
		Description: c.Description,
		Curriculum:  c.Curriculum,
	})
	if err != nil {
		return 0, fmt.Errorf("seed course %s: %w", c.ID, err)
	}
	return 1, nil
}

func readSeed(path string, out any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("skipping unreadable fixture", "path", path, "error", err)
		return false
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		slog.Warn("skipping invalid fixture YAML", "path", path, "error", err)
		return false
	}
	return true
}
