package recipeimage

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Progress is called after every finished action. err is nil when the page
// rendered successfully. index counts from 1 to total in execution order.
type Progress func(runID string, index, total int, outputName string, err error)

// Runner executes a planned sequence of actions. Actions share counter and
// property state and are therefore run strictly sequentially; cancellation
// is checked between actions so a run never leaves a half-written image.
type Runner struct {
	project  *Project
	progress Progress
}

// NewRunner creates a runner for the project. progress may be nil.
func NewRunner(project *Project, progress Progress) *Runner {
	return &Runner{project: project, progress: progress}
}

// Run executes the actions in order. Template mistakes abort the run; any
// other error of a single action is reported, logged and skipped so one bad
// recipe does not ruin a whole book. Returns the number of successfully
// rendered images.
func (r *Runner) Run(ctx context.Context, actions []*Action) (int, error) {
	runID := uuid.NewString()
	logger := r.project.logger.WithField("run_id", runID)
	logger.Info("Rendering %d images", len(actions))

	rendered := 0
	for i, action := range actions {
		if err := ctx.Err(); err != nil {
			return rendered, err
		}
		err := action.Run()
		if err == nil {
			rendered++
		}
		if r.progress != nil {
			r.progress(runID, i+1, len(actions), action.RenderedName(), err)
		}
		if err != nil {
			var templateErr *TemplateError
			if errors.As(err, &templateErr) {
				return rendered, err
			}
			logger.Warn("Image %04d failed: %v", action.Index, err)
		}
	}
	logger.Info("Rendered %d of %d images", rendered, len(actions))
	return rendered, nil
}
