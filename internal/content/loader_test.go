package content_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/skilldesk/skilldesk/internal/content"
)

func writeFixture(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
}

func TestSeedLibrary(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	writeFixture(t, dir, "intro.lesson.yaml", `
id: intro
title: Introduction
body: Welcome aboard.
`)
	writeFixture(t, dir, "checkpoint.quiz.yaml", `
id: checkpoint
title: Checkpoint
questions:
  - id: q1
    type: single-choice
    text: Ready to begin?
    options: ["Yes", "No"]
    correct: [0]
`)
	writeFixture(t, dir, "basics.course.yaml", `
id: basics
title: Basics
short_desc: The starter course.
curriculum:
  - lesson-intro
  - quiz-checkpoint
`)
	// Broken and incomplete fixtures are skipped, not fatal.
	writeFixture(t, dir, "broken.lesson.yaml", "{{not yaml")
	writeFixture(t, dir, "untitled.lesson.yaml", "id: untitled\n")

	store := content.NewMemoryStore()
	if err := content.SeedLibrary(ctx, store, dir); err != nil {
		t.Fatalf("SeedLibrary() error = %v", err)
	}

	lesson, err := store.GetLesson(ctx, content.GlobalScope(), "intro")
	if err != nil {
		t.Fatalf("GetLesson(intro) error = %v", err)
	}
	if lesson.Title != "Introduction" {
		t.Errorf("lesson title = %q", lesson.Title)
	}

	quiz, err := store.GetQuiz(ctx, content.GlobalScope(), "checkpoint")
	if err != nil {
		t.Fatalf("GetQuiz(checkpoint) error = %v", err)
	}
	if len(quiz.Questions) != 1 {
		t.Errorf("quiz questions = %d, want 1", len(quiz.Questions))
	}

	course, err := store.GetCourse(ctx, content.GlobalScope(), "basics")
	if err != nil {
		t.Fatalf("GetCourse(basics) error = %v", err)
	}
	if len(course.Curriculum) != 2 {
		t.Errorf("course curriculum = %v", course.Curriculum)
	}

	if _, err := store.GetLesson(ctx, content.GlobalScope(), "untitled"); err == nil {
		t.Error("untitled fixture was seeded, want skipped")
	}

	// Re-seeding over existing content changes nothing.
	title := "Renamed"
	if err := store.UpdateLesson(ctx, content.GlobalScope(), "intro", content.LessonPatch{Title: &title}); err != nil {
		t.Fatalf("UpdateLesson() error = %v", err)
	}
	if err := content.SeedLibrary(ctx, store, dir); err != nil {
		t.Fatalf("SeedLibrary() again error = %v", err)
	}
	lesson, _ = store.GetLesson(ctx, content.GlobalScope(), "intro")
	if lesson.Title != "Renamed" {
		t.Errorf("re-seed overwrote lesson title: %q", lesson.Title)
	}
}
