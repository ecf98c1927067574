// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"pattern-optimizer/internal/backtest"
	"pattern-optimizer/internal/errors"
	"pattern-optimizer/internal/models"
)

// SQLiteStore persists cached bars and optimization run records.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Bars table for cached daily OHLCV data
	CREATE TABLE IF NOT EXISTS bars (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, timestamp)
	);

	-- Optimization runs table
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		seed INTEGER NOT NULL,
		population INTEGER NOT NULL,
		generations INTEGER NOT NULL,
		evaluations INTEGER NOT NULL,
		best_genome_id TEXT NOT NULL,
		best_fitness REAL NOT NULL,
		genes TEXT NOT NULL,
		metrics TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Per-generation progress of each run
	CREATE TABLE IF NOT EXISTS generation_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		generation INTEGER NOT NULL,
		best_fitness REAL NOT NULL,
		mean_fitness REAL NOT NULL,
		evaluated INTEGER NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_bars_symbol ON bars(symbol);
	CREATE INDEX IF NOT EXISTS idx_bars_timestamp ON bars(timestamp);
	CREATE INDEX IF NOT EXISTS idx_history_run ON generation_history(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveBars saves bars to the cache, replacing duplicates.
func (s *SQLiteStore) SaveBars(ctx context.Context, symbol string, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (symbol, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		_, err := stmt.ExecContext(ctx, symbol, b.Timestamp, b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			return fmt.Errorf("failed to insert bar: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetBars retrieves cached bars for a symbol within a date range.
func (s *SQLiteStore) GetBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	var bars []models.Bar
	for rows.Next() {
		b := models.Bar{Symbol: symbol}
		if err := rows.Scan(&b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		bars = append(bars, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bars: %w", err)
	}

	return bars, nil
}

// RunRecord is the persisted summary of one optimization run.
type RunRecord struct {
	ID           int64
	StartedAt    time.Time
	FinishedAt   time.Time
	Seed         int64
	Population   int
	Generations  int
	Evaluations  int
	BestGenomeID string
	BestFitness  float64
	Genes        map[string]float64
	Metrics      backtest.Metrics
	History      []GenerationRow
}

// GenerationRow is one persisted generation summary.
type GenerationRow struct {
	Generation  int
	BestFitness float64
	MeanFitness float64
	Evaluated   int
}

// SaveRun persists a completed run and its generation history, returning
// the run's row ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, rec *RunRecord) (int64, error) {
	genes, err := json.Marshal(rec.Genes)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal genes: %w", err)
	}
	metrics, err := json.Marshal(rec.Metrics)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal metrics: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (started_at, finished_at, seed, population, generations, evaluations, best_genome_id, best_fitness, genes, metrics)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.StartedAt, rec.FinishedAt, rec.Seed, rec.Population, rec.Generations, rec.Evaluations, rec.BestGenomeID, rec.BestFitness, string(genes), string(metrics))
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	for _, h := range rec.History {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO generation_history (run_id, generation, best_fitness, mean_fitness, evaluated)
			VALUES (?, ?, ?, ?, ?)
		`, runID, h.Generation, h.BestFitness, h.MeanFitness, h.Evaluated)
		if err != nil {
			return 0, fmt.Errorf("failed to insert generation row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return runID, nil
}

// GetRun loads one run record with its generation history.
func (s *SQLiteStore) GetRun(ctx context.Context, id int64) (*RunRecord, error) {
	rec := &RunRecord{ID: id}
	var genes, metrics string
	err := s.db.QueryRowContext(ctx, `
		SELECT started_at, finished_at, seed, population, generations, evaluations, best_genome_id, best_fitness, genes, metrics
		FROM runs WHERE id = ?
	`, id).Scan(&rec.StartedAt, &rec.FinishedAt, &rec.Seed, &rec.Population, &rec.Generations,
		&rec.Evaluations, &rec.BestGenomeID, &rec.BestFitness, &genes, &metrics)
	if err == sql.ErrNoRows {
		return nil, errors.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	if err := json.Unmarshal([]byte(genes), &rec.Genes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal genes: %w", err)
	}
	if err := json.Unmarshal([]byte(metrics), &rec.Metrics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT generation, best_fitness, mean_fitness, evaluated
		FROM generation_history WHERE run_id = ? ORDER BY generation ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query generation history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var h GenerationRow
		if err := rows.Scan(&h.Generation, &h.BestFitness, &h.MeanFitness, &h.Evaluated); err != nil {
			return nil, fmt.Errorf("failed to scan generation row: %w", err)
		}
		rec.History = append(rec.History, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating generation history: %w", err)
	}

	return rec, nil
}

// ListRuns returns run summaries, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT id, started_at, finished_at, seed, population, generations, evaluations, best_genome_id, best_fitness
		FROM runs ORDER BY id DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var recs []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.ID, &rec.StartedAt, &rec.FinishedAt, &rec.Seed, &rec.Population,
			&rec.Generations, &rec.Evaluations, &rec.BestGenomeID, &rec.BestFitness); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return recs, nil
}
