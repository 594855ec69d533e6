package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/shelf/internal/models"
	"github.com/desertthunder/shelf/internal/resources"
	"github.com/desertthunder/shelf/internal/services"
	"github.com/desertthunder/shelf/internal/shared"
)

// ExportOpts contains configuration for library exports.
type ExportOpts struct {
	Details    bool    // Fetch each entry's book detail for notes, ISBN and description
	NumWorkers int     // Concurrent detail fetchers (default: 3, max: 10)
	RateLimit  float64 // Detail requests per second (default: 5)
}

// EntryFailure records an entry whose detail could not be fetched.
type EntryFailure struct {
	EntryID models.ID
	Title   string
	Error   string
}

// ExportResult contains the export and a summary of how it was built.
type ExportResult struct {
	Export   *models.LibraryExport
	Total    int
	Enriched int
	Failures []EntryFailure
}

// Exporter builds library exports.
type Exporter struct {
	client *services.Client
	logger *log.Logger
}

// NewExporter creates an [Exporter] using client for all requests.
func NewExporter(client *services.Client, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.Default()
	}
	return &Exporter{client: client, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Exporter) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

type detailJob struct {
	index int
	entry models.LibraryEntry
}

type detailResult struct {
	index  int
	detail *models.BookDetail
	err    string
}

// Export snapshots the library. It fails only when the library itself cannot be loaded or ctx ends.
func (e *Exporter) Export(ctx context.Context, prog chan<- ProgressUpdate, opts ExportOpts) (*ExportResult, error) {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	e.sendProgress(prog, fetchingLibraryUpdate())

	lib := resources.NewLibrary(e.client, resources.WithLogger(e.logger))
	lib.Load(ctx)
	state := lib.State()
	if state.Error != "" {
		return nil, fmt.Errorf("%w: %s", shared.ErrAPIRequest, state.Error)
	}

	e.sendProgress(prog, foundLibraryUpdate(len(state.Books)))

	entries := make([]models.ExportEntry, len(state.Books))
	for i, entry := range state.Books {
		entries[i] = models.ExportEntry{LibraryEntry: entry}
	}

	result := &ExportResult{
		Total:    len(entries),
		Failures: []EntryFailure{},
	}

	if opts.Details && len(entries) > 0 {
		if err := e.enrich(ctx, prog, entries, result, opts); err != nil {
			return nil, err
		}
	}

	result.Export = &models.LibraryExport{
		ExportedAt: time.Now().UTC(),
		Source:     e.client.BaseURL(),
		Detailed:   opts.Details,
		Entries:    entries,
	}

	e.sendProgress(prog, doneUpdate(result))
	return result, nil
}

// enrich fetches book details for entries in place using a rate-limited worker pool.
func (e *Exporter) enrich(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	entries []models.ExportEntry,
	result *ExportResult,
	opts ExportOpts,
) error {
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan detailJob, len(entries))
	results := make(chan detailResult, len(entries))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.detailWorker(ctx, &wg, limiter, jobs, results)
	}

	for i, entry := range entries {
		jobs <- detailJob{index: i, entry: entry.LibraryEntry}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		entry := &entries[res.index]

		if res.detail == nil {
			result.Failures = append(result.Failures, EntryFailure{EntryID: entry.ID, Title: entry.Title, Error: res.err})
			e.sendProgress(prog, detailFailedUpdate(completed, len(entries), entry.LibraryEntry, res.err))
			continue
		}

		entry.ISBN = res.detail.ISBN
		entry.Description = res.detail.Description
		if _, notes, ok := res.detail.Library(); ok {
			entry.Notes = notes
		}
		result.Enriched++
		e.sendProgress(prog, detailCompletedUpdate(completed, len(entries), entry.LibraryEntry))
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("export cancelled: %w", err)
	}
	return nil
}

// detailWorker loads book details for jobs until the channel closes or ctx ends.
func (e *Exporter) detailWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan detailJob,
	results chan<- detailResult,
) {
	defer wg.Done()

	for job := range jobs {
		if err := limiter.Wait(ctx); err != nil {
			results <- detailResult{index: job.index, err: err.Error()}
			continue
		}

		detail := resources.NewBookDetail(e.client, resources.WithLogger(e.logger))
		detail.Load(ctx, job.entry.DatoBookID)
		state := detail.State()

		switch {
		case state.Error != "":
			results <- detailResult{index: job.index, err: state.Error}
		case state.Book == nil:
			results <- detailResult{index: job.index, err: resources.MsgLoadBook}
		default:
			results <- detailResult{index: job.index, detail: state.Book}
		}
	}
}
