package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"github.com/fernwood/berrysight/internal/maturity"
)

// schema is applied on every startup; re-running it is a no-op.
const schema = `
CREATE TABLE IF NOT EXISTS analysis_history (
	id BIGSERIAL PRIMARY KEY,
	filename TEXT NOT NULL,
	processed_filename TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	total_detections INTEGER NOT NULL DEFAULT 0,
	maturity_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	maturity_distribution JSONB,
	batch_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_analysis_history_created_at ON analysis_history (created_at);
`

// Postgres stores history in PostgreSQL through the pgx stdlib driver.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects to dsn, tunes the connection pool, verifies
// connectivity and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(1 * time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Postgres{db: db}, nil
}

// Save implements Store.
func (p *Postgres) Save(ctx context.Context, rec Record) (int64, error) {
	dist, err := json.Marshal(rec.Distribution)
	if err != nil {
		return 0, fmt.Errorf("marshal distribution: %w", err)
	}

	const q = `
INSERT INTO analysis_history
	(filename, processed_filename, total_detections, maturity_score, maturity_distribution, batch_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`
	var id int64
	err = p.db.QueryRowContext(ctx, q,
		rec.Filename, rec.ProcessedFilename, rec.TotalDetections,
		rec.MaturityScore, dist, nullString(rec.BatchID)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	return id, nil
}

const selectColumns = `id, filename, processed_filename, created_at,
	total_detections, maturity_score, maturity_distribution, batch_id`

// List implements Store. Records with equal timestamps order by id so
// pages never repeat or skip rows.
func (p *Postgres) List(ctx context.Context, page, perPage int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	out := Page{Records: []Record{}, Page: page, PerPage: perPage}

	if err := p.db.QueryRowContext(ctx, `SELECT count(*) FROM analysis_history`).Scan(&out.Total); err != nil {
		return Page{}, fmt.Errorf("count records: %w", err)
	}

	q := `SELECT ` + selectColumns + `
FROM analysis_history
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2`
	rows, err := p.db.QueryContext(ctx, q, perPage, (page-1)*perPage)
	if err != nil {
		return Page{}, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return Page{}, fmt.Errorf("scan record: %w", err)
		}
		out.Records = append(out.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// Get implements Store.
func (p *Postgres) Get(ctx context.Context, id int64) (Record, error) {
	q := `SELECT ` + selectColumns + ` FROM analysis_history WHERE id = $1`
	rec, err := scanRecord(p.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("query record: %w", err)
	}
	return rec, nil
}

// Delete implements Store, returning the removed record.
func (p *Postgres) Delete(ctx context.Context, id int64) (Record, error) {
	rec, err := p.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if _, err := p.db.ExecContext(ctx, `DELETE FROM analysis_history WHERE id = $1`, id); err != nil {
		return Record{}, fmt.Errorf("delete record: %w", err)
	}
	return rec, nil
}

// Stats implements Store.
func (p *Postgres) Stats(ctx context.Context) (Stats, error) {
	const q = `
SELECT count(*), COALESCE(sum(total_detections), 0), COALESCE(avg(maturity_score), 0)
FROM analysis_history`
	var s Stats
	if err := p.db.QueryRowContext(ctx, q).Scan(&s.TotalAnalyses, &s.TotalDetections, &s.AverageScore); err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	s.AverageScore = round1(s.AverageScore)
	return s, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one row in selectColumns order. A corrupt distribution
// column reads as an empty distribution rather than failing the page.
func scanRecord(row rowScanner) (Record, error) {
	var (
		rec     Record
		dist    []byte
		batchID sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.Filename, &rec.ProcessedFilename, &rec.CreatedAt,
		&rec.TotalDetections, &rec.MaturityScore, &dist, &batchID)
	if err != nil {
		return Record{}, err
	}
	if len(dist) > 0 {
		if err := json.Unmarshal(dist, &rec.Distribution); err != nil {
			rec.Distribution = maturity.Distribution{}
		}
	}
	rec.BatchID = batchID.String
	return rec, nil
}

// nullString maps "" to NULL for optional text columns.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
