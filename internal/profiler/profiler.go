package profiler

import (
	"context"

	"github.com/insightloop/dataqual/pkg/models"
)

// Profiler computes a statistical profile of a dataset. Implementations
// return per-column null counts and inferred types, plus the storage key of
// the HTML report artifact when one was produced. A profiling failure is
// fatal to the analysis run that requested it.
type Profiler interface {
	Profile(ctx context.Context, dataset *models.Dataset) (*models.DatasetProfile, error)
}
