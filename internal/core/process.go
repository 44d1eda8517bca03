package core

// process.go converts each validated row into a canonical engagement record:
// three indexed scalar fields plus the attribute map holding every source
// column. Rows are staged and flushed to storage in fixed-size batches; a
// row that fails in isolation is counted and skipped, while a batch-level
// storage fault aborts the remainder of the file. Previously committed
// batches are never rolled back.

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/engagehub/submission/internal/tabular"
	"github.com/google/uuid"
)

// DefaultBatchSize is the number of staged rows committed per transaction.
const DefaultBatchSize = 100

// Processor normalizes validated tables into engagement records.
type Processor struct {
	records   RecordStore
	batchSize int
}

// NewProcessor creates a processor writing through the given record store.
// Non-positive batch sizes fall back to DefaultBatchSize.
func NewProcessor(records RecordStore, batchSize int) *Processor {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Processor{records: records, batchSize: batchSize}
}

// Process walks the table in source order, staging one record per row and
// flushing every batchSize rows. The returned result always reflects what
// was committed, even when the error is non-nil (a *ProcessingError from a
// batch-level fault).
func (p *Processor) Process(ctx context.Context, tbl *tabular.Table, fileID uuid.UUID) (*ProcessingResult, error) {
	result := &ProcessingResult{TotalRows: tbl.RowCount()}

	idx := tbl.HeaderIndex()
	datePos, hasDate := idx["submission_date"]
	depPos, hasDep := idx["department"]
	catPos, hasCat := idx["category"]

	staged := make([]EngagementRecord, 0, p.batchSize)

	flush := func() error {
		if len(staged) == 0 {
			return nil
		}
		failed, err := p.records.InsertBatch(ctx, staged)
		if err != nil {
			return &ProcessingError{Stage: "commit", Err: err}
		}
		for _, f := range failed {
			result.RowsFailed++
			msg := fmt.Sprintf("row %d: %v", f.RowNumber, f.Err)
			result.RowErrors = append(result.RowErrors, msg)
			slog.Error("row insert failed", "file_id", fileID, "row", f.RowNumber, "error", f.Err)
		}
		result.RowsProcessed += len(staged) - len(failed)
		staged = staged[:0]
		return nil
	}

	for i := 0; i < tbl.RowCount(); i++ {
		line := i + 2 // 1-based source line, header excluded

		rec := EngagementRecord{
			ID:         uuid.New(),
			FileID:     fileID,
			RowNumber:  line,
			Attributes: buildAttributes(tbl, i),
			CreatedAt:  time.Now().UTC(),
			IsActive:   true,
		}

		// An unparseable or missing date nulls the field without failing
		// the row.
		if hasDate {
			if t, ok := ParseDate(tbl.Cell(i, datePos)); ok {
				d := t
				rec.SubmissionDate = &d
			}
		}
		if hasDep {
			rec.Department = TrimmedOrNil(tbl.Cell(i, depPos))
		}
		if hasCat {
			rec.Category = TrimmedOrNil(tbl.Cell(i, catPos))
		}

		staged = append(staged, rec)

		if len(staged) >= p.batchSize {
			if err := flush(); err != nil {
				result.Notes = summaryNote(result.RowErrors)
				return result, err
			}
			slog.Debug("processed batch", "file_id", fileID, "rows", result.RowsProcessed)
		}
	}

	if err := flush(); err != nil {
		result.Notes = summaryNote(result.RowErrors)
		return result, err
	}

	result.Notes = summaryNote(result.RowErrors)
	slog.Info("file processing completed",
		"file_id", fileID,
		"rows_processed", result.RowsProcessed,
		"rows_failed", result.RowsFailed,
	)
	return result, nil
}

// buildAttributes captures every column of the row, coercing each cell to a
// flat scalar. The three indexed fields are duplicated here for
// queryability.
func buildAttributes(tbl *tabular.Table, row int) AttributeMap {
	attrs := make(AttributeMap, len(tbl.Headers))
	for col, name := range tbl.Headers {
		if strings.TrimSpace(name) == "" {
			continue
		}
		attrs[name] = CoerceCell(tbl.Cell(row, col))
	}
	return attrs
}

func summaryNote(rowErrors []string) string {
	if len(rowErrors) > 0 {
		return fmt.Sprintf("%d errors encountered", len(rowErrors))
	}
	return "All rows processed successfully"
}
