package excel

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/example/vocabulario/pkg/models"
)

const (
	// DefaultBatchSize is the number of words generated concurrently
	DefaultBatchSize = 5
	// DefaultBatchPause keeps the import under the API rate limit
	DefaultBatchPause = 1500 * time.Millisecond
)

// Generator produces the items for one word
type Generator interface {
	Generate(ctx context.Context, word string, kind models.Kind) ([]models.Item, error)
}

// Store is the part of the item repository the importer needs
type Store interface {
	FindBySource(ctx context.Context, sourceText string, kind models.Kind) (*models.Item, error)
	PutAll(ctx context.Context, items []models.Item) error
}

// RowError is a word that could not be imported
type RowError struct {
	Row Row
	Err error
}

func (e RowError) Error() string {
	return e.Row.Word + ": " + e.Err.Error()
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Items          int
	Skipped        int
	Errors         []RowError
}

// Progress is called after every batch with the words handled so far
type Progress func(done, total int)

// Importer generates and stores words from a word list
type Importer struct {
	gen       Generator
	store     Store
	log       logrus.FieldLogger
	BatchSize int
	Pause     time.Duration
	Progress  Progress
}

// NewImporter creates an importer with the default batching
func NewImporter(gen Generator, store Store, log logrus.FieldLogger) *Importer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Importer{
		gen:       gen,
		store:     store,
		log:       log,
		BatchSize: DefaultBatchSize,
		Pause:     DefaultBatchPause,
	}
}

// Import skips words that already exist, generates the rest batch by
// batch and stores each word with its forms. A failing word is recorded
// and does not stop the import.
func (im *Importer) Import(ctx context.Context, rows []Row) (*ImportResult, error) {
	result := &ImportResult{}

	rows = lo.UniqBy(rows, func(r Row) string {
		return strings.ToLower(r.Word) + "|" + string(r.Kind)
	})
	result.TotalProcessed = len(rows)

	var todo []Row
	for _, row := range rows {
		existing, err := im.store.FindBySource(ctx, row.Word, row.Kind)
		if err != nil {
			return result, errors.Wrap(err, "failed to check existing words")
		}
		if existing != nil {
			result.Skipped++
			continue
		}
		todo = append(todo, row)
	}

	size := im.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := lo.Chunk(todo, size)
	done := result.Skipped
	im.report(done, result.TotalProcessed)

	for i, batch := range batches {
		if i > 0 && im.Pause > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(im.Pause):
			}
		}

		generated := make([][]models.Item, len(batch))
		failures := make([]error, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(size)
		for j, row := range batch {
			j, row := j, row
			g.Go(func() error {
				items, err := im.gen.Generate(gctx, row.Word, row.Kind)
				if err != nil {
					failures[j] = err
					return nil
				}
				generated[j] = items
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return result, err
		}

		for j, row := range batch {
			if failures[j] == nil {
				failures[j] = im.store.PutAll(ctx, generated[j])
			}
			if failures[j] != nil {
				im.log.WithError(failures[j]).WithField("word", row.Word).Warn("failed to import word")
				result.Errors = append(result.Errors, RowError{Row: row, Err: failures[j]})
				continue
			}
			result.Created++
			result.Items += len(generated[j])
		}

		done += len(batch)
		im.report(done, result.TotalProcessed)
	}

	im.log.WithFields(logrus.Fields{
		"created": result.Created,
		"skipped": result.Skipped,
		"failed":  len(result.Errors),
	}).Info("import finished")
	return result, nil
}

func (im *Importer) report(done, total int) {
	if im.Progress != nil {
		im.Progress(done, total)
	}
}
