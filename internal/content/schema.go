package content

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// questionSchema is the shape contract for embedded questions. Structural
// rules live here; the cross-field rules (answer counts, index bounds) are
// checked in ValidateQuestion.
const questionSchemaJSON = `{
	"type": "object",
	"required": ["type", "text", "options", "correct"],
	"properties": {
		"id": {"type": "string"},
		"type": {"type": "string", "enum": ["single-choice", "multiple-select"]},
		"text": {"type": "string", "minLength": 1},
		"options": {
			"type": "array",
			"minItems": 2,
			"items": {"type": "string", "minLength": 1}
		},
		"correct": {
			"type": "array",
			"minItems": 1,
			"items": {"type": "integer", "minimum": 0}
		}
	}
}`

var questionSchema = gojsonschema.NewStringLoader(questionSchemaJSON)

// ValidateQuestion checks a question payload before it is embedded into a
// quiz. Failures are caller errors, reported as ErrInvalidInput.
func ValidateQuestion(q Question) error {
	result, err := gojsonschema.Validate(questionSchema, gojsonschema.NewGoLoader(q))
	if err != nil {
		return fmt.Errorf("validate question: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("%w: question %s", ErrInvalidInput, result.Errors()[0])
	}

	for _, idx := range q.Correct {
		if idx >= len(q.Options) {
			return fmt.Errorf("%w: correct answer index %d out of range", ErrInvalidInput, idx)
		}
	}
	if q.Type == QuestionSingleChoice && len(q.Correct) != 1 {
		return fmt.Errorf("%w: single-choice question must have exactly one correct answer", ErrInvalidInput)
	}
	return nil
}
