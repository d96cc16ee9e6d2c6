package content

import "errors"

// ErrNotFound covers both a missing entity and a soft-deleted one; callers
// cannot tell the two apart.
var ErrNotFound = errors.New("not found")

// ErrContention reports a concurrent-writer conflict on an optimistic
// rewrite (question array edits). The store re-runs the rewrite on conflict;
// a caller only sees this error once the retry budget is exhausted, which
// means another editor kept winning every attempt.
var ErrContention = errors.New("concurrent modification")

// ErrInvalidInput reports a caller mistake in a payload, such as a malformed
// curriculum reference or a question failing schema validation.
var ErrInvalidInput = errors.New("invalid input")
