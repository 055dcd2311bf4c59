package backend

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/viant/multivec/container"
	"github.com/viant/multivec/errs"
	"github.com/viant/multivec/internal/logging"
	"github.com/viant/multivec/vector"
)

// DefaultBatchSize is the number of records per Insert call.
const DefaultBatchSize = 1000

// RecordReader streams container records. *container.Reader and
// *container.File implement it.
type RecordReader interface {
	Header() container.Header
	Next() (vector.Record, error)
}

// Load recreates collection, streams every record of r into it in batches
// and builds the index. It returns the number of records inserted.
func Load(ctx context.Context, loader Loader, collection string, r RecordReader, batchSize int, logger *logging.Logger) (int64, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	logger = logging.OrNoop(logger).WithCollection(collection)
	started := time.Now()
	total, err := load(ctx, loader, collection, r, batchSize, logger)
	logger.LogLoad(ctx, total, time.Since(started), err)
	return total, err
}

func load(ctx context.Context, loader Loader, collection string, r RecordReader, batchSize int, logger *logging.Logger) (int64, error) {
	header := r.Header()
	if err := loader.Create(ctx, collection, int(header.Dimension)); err != nil {
		return 0, err
	}
	batch := make([]vector.Record, 0, min(int64(batchSize), max(header.Vectors, 1)))
	var total int64
	var batches int
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := loader.Insert(ctx, collection, batch)
		if err == nil {
			total += int64(len(batch))
		}
		batches++
		logger.LogBatchInsert(ctx, batches, len(batch), total, err)
		batch = batch[:0]
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, err
		}
		batch = append(batch, rec)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, loader.BuildIndex(ctx, collection)
}

// ValidateK rejects non-positive k.
func ValidateK(op string, k int) error {
	if k <= 0 {
		return errs.InvalidArgument(op, "k must be positive, got %d", k)
	}
	return nil
}
