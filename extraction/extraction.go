// Package extraction reads identity-document fields out of captured ID
// images through an external vision model. Every field in the response is
// optional; callers merge what came back and leave the rest untouched, so a
// thin or failed extraction degrades to manual entry instead of blocking.
package extraction

import (
	"context"

	"go-guest-registry/models"
)

// Extractor is the boundary the wizard talks to.
type Extractor interface {
	Extract(ctx context.Context, req models.ExtractionRequest) (models.ExtractedFields, error)
}
