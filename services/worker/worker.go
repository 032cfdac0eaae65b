package worker

import (
	"context"
	"errors"
	"sort"
	"time"

	"sjsage522/rentalworker/internal/crawler"
	"sjsage522/rentalworker/internal/listing"
	"sjsage522/rentalworker/internal/normalize"
	"sjsage522/rentalworker/logger"
	apperrors "sjsage522/rentalworker/pkg/errors"
	"sjsage522/rentalworker/services/publisher"
	"sjsage522/rentalworker/services/sink"

	"github.com/google/uuid"
)

// progressEvery is the number of detail pages between progress logs
const progressEvery = 500

// Writer persists one city's table
type Writer interface {
	Write(path string, rows []listing.Listing) (overwrote bool, err error)
}

// Options configures a Worker
type Options struct {
	// StartURL maps a city id to its first index page
	StartURL  func(city string) string
	Cities    []string
	OutputDir string
	// DedupeURLs drops repeated frontier URLs before extraction
	DedupeURLs bool
	// CrawlInterval repeats the run; zero runs once
	CrawlInterval time.Duration
}

// Worker runs the crawl, extract, normalize and write pipeline per city
type Worker struct {
	ctx        context.Context
	index      crawler.IndexSource
	listings   crawler.ListingSource
	normalizer *normalize.Normalizer
	writer     Writer
	publisher  publisher.Publisher
	logger     *logger.Logger
	opts       Options
	now        func() time.Time
}

// NewWorker creates a new worker. pub may be nil.
func NewWorker(
	ctx context.Context,
	index crawler.IndexSource,
	listings crawler.ListingSource,
	normalizer *normalize.Normalizer,
	writer Writer,
	pub publisher.Publisher,
	log *logger.Logger,
	opts Options,
) *Worker {
	if log == nil {
		log = logger.Nop()
	}
	return &Worker{
		ctx:        ctx,
		index:      index,
		listings:   listings,
		normalizer: normalizer,
		writer:     writer,
		publisher:  pub,
		logger:     log,
		opts:       opts,
		now:        time.Now,
	}
}

// Start runs the pipeline once, or on every CrawlInterval until the context
// is cancelled. Cancellation is not reported as an error. When repeating, a
// run that fails with a non-fatal scrape error is logged and retried on the
// next interval.
func (w *Worker) Start() error {
	for {
		start := time.Now()
		_, err := w.Run(w.ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			var se *apperrors.ScrapeError
			if w.opts.CrawlInterval <= 0 || !errors.As(err, &se) || se.IsFatal() {
				return err
			}
			w.logger.WithError(err).Error().
				Str("type", string(se.Type)).
				Dur("retry_in", w.opts.CrawlInterval).
				Msg("Run failed")
		} else {
			w.logger.Info().Dur("elapsed", time.Since(start)).Msg("Run finished")
		}

		if w.opts.CrawlInterval <= 0 {
			return nil
		}
		select {
		case <-w.ctx.Done():
			return nil
		case <-time.After(w.opts.CrawlInterval):
		}
	}
}

// Run processes every configured city once and returns one event per city
// written. A sink failure aborts the run.
func (w *Worker) Run(ctx context.Context) ([]publisher.RunEvent, error) {
	runID := uuid.NewString()
	log := w.logger.WithField("run_id", runID)
	date := w.now()

	log.Info().
		Strs("cities", w.opts.Cities).
		Str("date", date.Format(sink.DateLayout)).
		Msg("Run started")

	events := make([]publisher.RunEvent, 0, len(w.opts.Cities))
	for _, city := range w.opts.Cities {
		cityLog := w.logger.WithFields(logger.Fields{"run_id": runID, "city": city})
		event, err := w.runCity(ctx, cityLog, runID, city, date)
		if err != nil {
			return events, err
		}
		events = append(events, event)
	}
	return events, nil
}

func (w *Worker) runCity(ctx context.Context, log *logger.Logger, runID, city string, date time.Time) (publisher.RunEvent, error) {
	dateStr := date.Format(sink.DateLayout)
	event := publisher.RunEvent{
		RunID: runID,
		City:  city,
		Date:  dateStr,
	}

	// Crawl
	done := log.Phase("crawl")
	frontier, stats, err := w.index.Crawl(ctx, w.opts.StartURL(city))
	done()
	if err != nil {
		return event, err
	}
	if w.opts.DedupeURLs {
		frontier = frontier.Unique()
	}
	event.URLs = len(frontier)
	log.Info().
		Int("pages", stats.Pages).
		Int("urls", len(frontier)).
		Str("stop_reason", stats.StopReason).
		Msg("Index crawl complete")

	// Extract
	done = log.Phase("extract")
	batches, skipped, err := w.extract(ctx, log, frontier, dateStr)
	done()
	if err != nil {
		return event, err
	}
	raw := listing.Aggregate(batches...)
	event.Raw = len(raw)
	event.Skipped = skipped
	log.Info().
		Int("records", len(raw)).
		Interface("skipped", skipped).
		Msg("Extraction complete")

	// Normalize
	done = log.Phase("normalize")
	rows, report := w.normalizer.Normalize(raw)
	done()
	event.Kept = report.Kept
	event.Dropped = make(map[string]int, len(report.Dropped))
	for reason, n := range report.Dropped {
		event.Dropped[string(reason)] = n
	}
	log.Info().
		Int("input", report.Input).
		Int("kept", report.Kept).
		Interface("dropped", report.Dropped).
		Interface("unparsed", report.Unparsed).
		Msg("Normalization complete")

	// Write
	path := sink.Path(w.opts.OutputDir, sink.CityID(city), date, "csv")
	done = log.Phase("write")
	overwrote, err := w.writer.Write(path, rows)
	done()
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to write output")
		return event, err
	}
	event.Path = path
	event.Overwrote = overwrote
	if overwrote {
		log.Warn().Str("path", path).Msg("Replaced an output file from earlier today")
	}
	log.Info().Str("path", path).Int("rows", len(rows)).Msg("Output written")

	event.FinishedAt = w.now()
	w.publish(ctx, log, event)
	return event, nil
}

// extract fetches every frontier URL in order. Skipped listings are logged
// and counted; only context cancellation stops the loop.
func (w *Worker) extract(ctx context.Context, log *logger.Logger, frontier crawler.Frontier, date string) ([][]listing.RawListing, map[string]int, error) {
	batches := make([][]listing.RawListing, 0, len(frontier))
	skipped := make(map[string]int)

	for i, url := range frontier {
		if err := ctx.Err(); err != nil {
			return batches, skipped, err
		}

		result := w.listings.FetchListing(ctx, url, date)
		switch result.Outcome {
		case crawler.Extracted:
			batches = append(batches, result.Records)
		case crawler.Skipped:
			if ctx.Err() != nil {
				return batches, skipped, ctx.Err()
			}
			skipped[string(result.Reason)]++
			var se *apperrors.ScrapeError
			log.WithError(result.Err).Warn().
				Str("url", url).
				Str("reason", string(result.Reason)).
				Bool("retryable", errors.As(result.Err, &se) && se.IsRetryable()).
				Msg("Skipped listing")
		}

		if (i+1)%progressEvery == 0 {
			log.Info().
				Int("done", i+1).
				Int("total", len(frontier)).
				Interface("skipped", skipped).
				Msg("Extraction progress")
		}
	}

	if len(skipped) > 0 {
		reasons := make([]string, 0, len(skipped))
		for reason := range skipped {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			log.Info().Str("reason", reason).Int("count", skipped[reason]).Msg("Skip summary")
		}
	}
	return batches, skipped, nil
}

// publish sends the run event; failures are logged only
func (w *Worker) publish(ctx context.Context, log *logger.Logger, event publisher.RunEvent) {
	if w.publisher == nil {
		return
	}
	if err := w.publisher.Publish(ctx, event); err != nil {
		log.Error().Err(err).Msg("Failed to publish run event")
		return
	}
	log.Debug().Msg("Published run event")
}
