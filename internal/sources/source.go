package sources

import (
	"context"

	"realitky/pipeline/internal/models"
)

// Adapter is implemented by every listing source. FetchNext retrieves one
// page of raw listings for a work unit; done reports exhaustion, the
// normal condition signaling that no further pages exist for the unit.
// Pages are requested in strictly increasing order starting at 1.
type Adapter interface {
	Name() string
	FetchNext(ctx context.Context, unit models.ListingUnit, page int) (listings []models.RawListing, done bool, err error)
}
