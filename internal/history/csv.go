package history

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/fernwood/berrysight/internal/detection"
)

// csvHeader is the column layout of history exports. Spreadsheet imports
// downstream key on these exact names.
var csvHeader = []string{
	"ID", "Date", "Filename", "Total Detected",
	"Ripe", "Semi-ripe", "Unripe", "Maturity Score",
}

// csvTimeLayout formats record timestamps in exports.
const csvTimeLayout = "2006-01-02 15:04:05"

// exportPageSize bounds one fetch while streaming the full history.
const exportPageSize = 500

// ExportCSV streams the entire history to w as CSV, newest first.
func ExportCSV(ctx context.Context, store Store, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for page := 1; ; page++ {
		p, err := store.List(ctx, page, exportPageSize)
		if err != nil {
			return fmt.Errorf("list records: %w", err)
		}
		for _, rec := range p.Records {
			if err := cw.Write(csvRow(rec)); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
		if len(p.Records) < exportPageSize {
			break
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportRecordCSV writes a single record to w as CSV. Returns ErrNotFound
// when the id does not exist.
func ExportRecordCSV(ctx context.Context, store Store, id int64, w io.Writer) error {
	rec, err := store.Get(ctx, id)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.Write(csvRow(rec)); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// csvRow flattens one record. A record saved without a distribution
// exports zero counts.
func csvRow(rec Record) []string {
	counts := rec.Distribution.Counts
	return []string{
		strconv.FormatInt(rec.ID, 10),
		rec.CreatedAt.Format(csvTimeLayout),
		rec.Filename,
		strconv.Itoa(rec.TotalDetections),
		strconv.Itoa(counts[detection.MaturityRipe]),
		strconv.Itoa(counts[detection.MaturitySemiRipe]),
		strconv.Itoa(counts[detection.MaturityUnripe]),
		fmt.Sprintf("%.1f%%", rec.MaturityScore),
	}
}
