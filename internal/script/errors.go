package script

import "fmt"

// GenerationExhaustedError reports that the retry policy gave up on a
// generation stage (intro, segment or conclusion).
type GenerationExhaustedError struct {
	Stage    string
	Attempts int
	Err      error
}

func (e *GenerationExhaustedError) Error() string {
	return fmt.Sprintf("failed to write %s after %d attempt(s): %v", e.Stage, e.Attempts, e.Err)
}

func (e *GenerationExhaustedError) Unwrap() error { return e.Err }

// EmptyGenerationError reports a successful backend call that produced no
// usable choices.
type EmptyGenerationError struct {
	Stage string
}

func (e *EmptyGenerationError) Error() string {
	return fmt.Sprintf("no %s generated: backend returned no usable choices", e.Stage)
}
