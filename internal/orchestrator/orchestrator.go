package orchestrator

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"realitky/pipeline/internal/models"
	"realitky/pipeline/internal/normalize"
	"realitky/pipeline/internal/ratelimit"
	"realitky/pipeline/internal/retry"
	"realitky/pipeline/internal/sources"
)

// PropertyStore is the slice of the persistence API the orchestrator needs.
type PropertyStore interface {
	Save(ctx context.Context, property *models.PropertyData) error
	PatchCadastre(ctx context.Context, propertyID int64, data *models.CadastralData) error
	NeedingCadastre(ctx context.Context, pageSize int) ([]models.EnrichmentUnit, error)
}

// CadastralLookup resolves land-registry attributes for a coordinate.
// A (nil, nil) result means no feature was found, a normal condition.
type CadastralLookup interface {
	Lookup(ctx context.Context, lat, lng float64) (*models.CadastralData, error)
}

// DatasetEmitter is the fire-and-forget output channel.
type DatasetEmitter interface {
	Emit(property *models.PropertyData)
}

// Source pairs a listing adapter with its rate limiter. The orchestrator
// runs one request at a time per source, which the limiter relies on.
type Source struct {
	Adapter sources.Adapter
	Limiter *ratelimit.Limiter
}

// Report carries the final counters of a run. A run always completes and
// reports them, even when every single item failed.
type Report struct {
	Scraped          int
	Saved            int
	SaveFailed       int
	Skipped          int
	UnitsAborted     int
	Enriched         int
	EnrichmentFailed int
	NoFeature        int
}

// Fields renders the report for structured logging.
func (r Report) Fields() logrus.Fields {
	return logrus.Fields{
		"scraped":           r.Scraped,
		"saved":             r.Saved,
		"save_failed":       r.SaveFailed,
		"skipped":           r.Skipped,
		"units_aborted":     r.UnitsAborted,
		"enriched":          r.Enriched,
		"enrichment_failed": r.EnrichmentFailed,
		"no_feature":        r.NoFeature,
	}
}

// Options wires an orchestrator.
type Options struct {
	Sources            []Source
	Engine             *normalize.Engine
	Store              PropertyStore
	Dataset            DatasetEmitter
	Cadastre           CadastralLookup
	CadastreLimiter    *ratelimit.Limiter
	Retry              *retry.Policy
	MaxProperties      int
	EnrichmentPageSize int
	Logger             *logrus.Logger
}

// Orchestrator drives one run. All mutable run state (the running total,
// the limiter timestamps) is owned by the single goroutine executing the
// run; there is no concurrent mutation and therefore no locking.
type Orchestrator struct {
	opts   Options
	logger *logrus.Logger
}

// New creates an orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Orchestrator{opts: opts, logger: logger}
}

// EnumerateUnits builds the fixed work-unit set of a listing job in the
// nested city → property type → transaction type order. The order matters
// only for reproducibility.
func EnumerateUnits(cities, propertyTypes, transactionTypes []string) []models.ListingUnit {
	var units []models.ListingUnit
	for _, city := range cities {
		for _, propertyType := range propertyTypes {
			for _, transactionType := range transactionTypes {
				units = append(units, models.ListingUnit{
					City:            city,
					PropertyType:    propertyType,
					TransactionType: transactionType,
				})
			}
		}
	}
	return units
}

// RunListings sweeps every source over every work unit until the sources
// are exhausted or the cutoff is reached. Nothing here is process-fatal.
func (o *Orchestrator) RunListings(ctx context.Context, units []models.ListingUnit) Report {
	report := Report{}
	total := 0

	for _, source := range o.opts.Sources {
		sourceLog := o.logger.WithField("source", source.Adapter.Name())
		for _, unit := range units {
			if ctx.Err() != nil {
				sourceLog.Warn("Run cancelled, abandoning remaining units")
				return report
			}
			if total >= o.opts.MaxProperties {
				sourceLog.WithField("total", total).Info("Cutoff reached, abandoning remaining units")
				return report
			}
			o.runUnit(ctx, source, unit, &total, &report)
		}
	}

	return report
}

// runUnit walks one work unit through its page loop:
// Pending → Fetching → (Normalizing → Saving)* → Exhausted | Aborted.
// A fetch error aborts the unit only; per-entry errors are skipped.
func (o *Orchestrator) runUnit(ctx context.Context, source Source, unit models.ListingUnit, total *int, report *Report) {
	unitLog := o.logger.WithFields(logrus.Fields{
		"source":           source.Adapter.Name(),
		"city":             unit.City,
		"property_type":    unit.PropertyType,
		"transaction_type": unit.TransactionType,
	})
	unitLog.Info("Starting work unit")

	for page := 1; ; page++ {
		if ctx.Err() != nil || *total >= o.opts.MaxProperties {
			return
		}

		if err := source.Limiter.Wait(ctx); err != nil {
			return
		}

		listings, done, err := source.Adapter.FetchNext(ctx, unit, page)
		if err != nil {
			unitLog.WithError(err).WithField("page", page).Error("Fetch failed, aborting unit")
			report.UnitsAborted++
			return
		}

		for _, raw := range listings {
			if *total >= o.opts.MaxProperties {
				break
			}

			property, err := o.opts.Engine.Listing(raw)
			if err != nil {
				unitLog.WithError(err).WithField("external_id", raw.ExternalID).Warn("Skipping entry")
				report.Skipped++
				continue
			}

			if o.opts.Dataset != nil {
				o.opts.Dataset.Emit(property)
			}

			*total++
			report.Scraped++

			if err := o.opts.Store.Save(ctx, property); err != nil {
				unitLog.WithError(err).WithField("external_id", property.ExternalID).Error("Save failed")
				report.SaveFailed++
			} else {
				report.Saved++
			}
		}

		if done {
			unitLog.WithField("pages", page).Info("Work unit exhausted")
			return
		}
	}
}

// RunEnrichment resolves cadastral data for every property the persistence
// layer reports as lacking it. Lookups are retried with backoff; a missing
// feature is recorded, not retried.
func (o *Orchestrator) RunEnrichment(ctx context.Context) Report {
	report := Report{}

	units, err := o.opts.Store.NeedingCadastre(ctx, o.opts.EnrichmentPageSize)
	if err != nil {
		o.logger.WithError(err).Error("Failed to list properties needing enrichment")
		return report
	}
	o.logger.WithField("count", len(units)).Info("Starting cadastral enrichment")

	for _, unit := range units {
		if ctx.Err() != nil {
			o.logger.Warn("Run cancelled, abandoning remaining enrichment units")
			return report
		}

		if err := o.opts.CadastreLimiter.Wait(ctx); err != nil {
			return report
		}

		unitLog := o.logger.WithField("property_id", unit.PropertyID)

		var data *models.CadastralData
		err := o.opts.Retry.Do(ctx, "cadastral lookup", func(ctx context.Context) error {
			result, lookupErr := o.opts.Cadastre.Lookup(ctx, unit.Latitude, unit.Longitude)
			if lookupErr != nil {
				return lookupErr
			}
			data = result
			return nil
		})
		if err != nil {
			unitLog.WithError(err).Error("Cadastral lookup failed")
			report.EnrichmentFailed++
			continue
		}
		if data == nil {
			unitLog.Debug("No cadastral feature found")
			report.NoFeature++
			continue
		}

		if err := o.opts.Store.PatchCadastre(ctx, unit.PropertyID, data); err != nil {
			unitLog.WithError(err).Error("Failed to patch cadastral data")
			report.EnrichmentFailed++
			continue
		}
		report.Enriched++
	}

	return report
}
