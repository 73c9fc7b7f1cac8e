// Package history persists analysis results and serves the paging, export
// and stats queries behind the history endpoints.
//
// Two Store implementations exist: Postgres for deployments with a
// database and Memory for everything else, including tests. Both order
// listings newest first and are safe for concurrent use.
package history

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/fernwood/berrysight/internal/maturity"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("history record not found")

// Record is one persisted analysis.
type Record struct {
	ID                int64                 `json:"id"`
	Filename          string                `json:"filename"`
	ProcessedFilename string                `json:"processed_filename"`
	CreatedAt         time.Time             `json:"created_at"`
	TotalDetections   int                   `json:"total_detections"`
	MaturityScore     float64               `json:"maturity_score"`
	Distribution      maturity.Distribution `json:"maturity_distribution"`
	BatchID           string                `json:"batch_id,omitempty"`
}

// Page is one page of history records, newest first.
type Page struct {
	Records []Record `json:"records"`
	Page    int      `json:"page"`
	PerPage int      `json:"per_page"`
	Total   int      `json:"total"`
}

// Stats summarizes the whole history.
type Stats struct {
	TotalAnalyses   int     `json:"total_analyses"`
	TotalDetections int     `json:"total_detections"`
	AverageScore    float64 `json:"average_maturity_score"`
}

// Store is the persistence boundary for analysis history.
//
// Save assigns and returns the record id. Delete returns the removed
// record so the caller can clean up the files it references; deleting a
// missing id returns ErrNotFound, as does Get.
type Store interface {
	Save(ctx context.Context, rec Record) (int64, error)
	List(ctx context.Context, page, perPage int) (Page, error)
	Get(ctx context.Context, id int64) (Record, error)
	Delete(ctx context.Context, id int64) (Record, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// defaultPerPage is used when a caller asks for a non-positive page size.
const defaultPerPage = 10

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
