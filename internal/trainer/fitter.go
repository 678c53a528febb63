package trainer

import (
	"context"

	"langid-backend/pkg/api"
)

// Fitter runs the optimization loop for a prepared job. Implementations must
// leave model weights and a config.json in job.OutputDir.
type Fitter interface {
	Fit(ctx context.Context, job api.FitJob) error
}

type FitterMode string

const (
	CommandFitterMode FitterMode = "command"
	PluginFitterMode  FitterMode = "plugin"
)
