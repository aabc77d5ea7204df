package generate

import (
	"fmt"

	"github.com/researchrender/researchrender/pkg/models"
)

// StageError names the stage that could not produce an artifact. The
// wrapped error carries the llm failure category.
type StageError struct {
	Stage    models.Stage
	Attempts int
	Err      error
}

func (e *StageError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("%s generation failed after %d attempts: %v", e.Stage, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s generation failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
