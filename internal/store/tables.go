package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cpelink/internal/linkage"
)

// RunInfo describes the table saved for one stage.
type RunInfo struct {
	Stage   string
	RunID   string
	SavedAt time.Time
	Rows    int
}

type schemaRecord struct {
	Stage    string   `json:"stage"`
	Keys     []string `json:"keys"`
	Features []string `json:"features"`
	Attrs    []string `json:"attrs"`
}

// SaveTable replaces the table stored for stage in a single transaction.
func (s *Store) SaveTable(ctx context.Context, stage, runID string, t *linkage.Table) error {
	ctx = ensureContext(ctx)
	stage = strings.TrimSpace(stage)
	if stage == "" {
		return errors.New("save table: stage is required")
	}
	if t == nil {
		return fmt.Errorf("save table %s: table is nil", stage)
	}
	schema := t.Schema()
	schemaJSON, err := json.Marshal(schemaRecord{
		Stage:    schema.Stage,
		Keys:     schema.KeyColumns,
		Features: schema.FeatureColumns,
		Attrs:    schema.AttrColumns,
	})
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	rows, err := encodeRows(t)
	if err != nil {
		return fmt.Errorf("encode rows for %s: %w", stage, err)
	}
	savedAt := time.Now().UTC().Format(time.RFC3339Nano)

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin save tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, "DELETE FROM linkage_rows WHERE stage = ?", stage); err != nil {
			return fmt.Errorf("clear rows for %s: %w", stage, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO runs (stage, run_id, saved_at, schema_json, row_count)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(stage) DO UPDATE SET run_id = excluded.run_id, saved_at = excluded.saved_at,
				schema_json = excluded.schema_json, row_count = excluded.row_count`,
			stage, runID, savedAt, string(schemaJSON), len(rows),
		); err != nil {
			return fmt.Errorf("record run for %s: %w", stage, err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO linkage_rows
			(stage, position, key_json, partition_key, features_json, attrs_json, label, source)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare row insert: %w", err)
		}
		defer stmt.Close()
		for i, row := range rows {
			if _, err := stmt.ExecContext(ctx, stage, i, row.key, row.partition, row.features, row.attrs, row.label, row.source); err != nil {
				return fmt.Errorf("insert row %d for %s: %w", i, stage, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit save tx: %w", err)
		}
		return nil
	})
}

// LoadTable returns the table stored for stage, or linkage.ErrNotFound.
func (s *Store) LoadTable(ctx context.Context, stage string) (*linkage.Table, error) {
	ctx = ensureContext(ctx)
	var (
		schemaJSON string
		rowCount   int
	)
	err := s.db.QueryRowContext(ctx, "SELECT schema_json, row_count FROM runs WHERE stage = ?", stage).Scan(&schemaJSON, &rowCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, linkage.Wrap(linkage.ErrNotFound, stage, "load table", "no table saved for stage", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("read run for %s: %w", stage, err)
	}
	var record schemaRecord
	if err := json.Unmarshal([]byte(schemaJSON), &record); err != nil {
		return nil, fmt.Errorf("decode schema for %s: %w", stage, err)
	}
	schema, err := linkage.NewSchema(record.Stage, record.Keys, record.Features, record.Attrs)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT key_json, partition_key, features_json, attrs_json, label, source
		FROM linkage_rows WHERE stage = ? ORDER BY position`, stage)
	if err != nil {
		return nil, fmt.Errorf("query rows for %s: %w", stage, err)
	}
	defer rows.Close()

	b := linkage.NewBuilder(schema, rowCount)
	for rows.Next() {
		var enc encodedRow
		if err := rows.Scan(&enc.key, &enc.partition, &enc.features, &enc.attrs, &enc.label, &enc.source); err != nil {
			return nil, fmt.Errorf("scan row for %s: %w", stage, err)
		}
		row, err := enc.decode()
		if err != nil {
			return nil, fmt.Errorf("decode row %d for %s: %w", b.Len(), stage, err)
		}
		if err := b.Append(row); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows for %s: %w", stage, err)
	}
	return b.Build(), nil
}

// Stages lists the saved stages ordered by name.
func (s *Store) Stages(ctx context.Context) ([]RunInfo, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT stage, run_id, saved_at, row_count FROM runs ORDER BY stage")
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var (
			info     RunInfo
			savedRaw string
		)
		if err := rows.Scan(&info.Stage, &info.RunID, &savedRaw, &info.Rows); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		if saved, err := time.Parse(time.RFC3339Nano, savedRaw); err == nil {
			info.SavedAt = saved
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Remove deletes the table stored for stage. Removing an absent stage is not an error.
func (s *Store) Remove(ctx context.Context, stage string) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE stage = ?", stage)
		return err
	})
}

type encodedRow struct {
	key       string
	partition string
	features  string
	attrs     string
	label     int
	source    string
}

func encodeRows(t *linkage.Table) ([]encodedRow, error) {
	out := make([]encodedRow, t.Len())
	for i := range out {
		row := t.Row(i)
		key, err := json.Marshal(row.Key)
		if err != nil {
			return nil, err
		}
		// Features go through text so non-finite values survive.
		text := make([]string, len(row.Features))
		for j, v := range row.Features {
			text[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		features, err := json.Marshal(text)
		if err != nil {
			return nil, err
		}
		attrs, err := json.Marshal(row.Attrs)
		if err != nil {
			return nil, err
		}
		out[i] = encodedRow{
			key:       string(key),
			partition: row.Partition,
			features:  string(features),
			attrs:     string(attrs),
			label:     int(row.Label),
			source:    string(row.Source),
		}
	}
	return out, nil
}

func (e encodedRow) decode() (linkage.Row, error) {
	row := linkage.Row{
		Partition: e.partition,
		Source:    linkage.Source(e.source),
		Key:       []string{},
		Attrs:     []string{},
	}
	if err := json.Unmarshal([]byte(e.key), &row.Key); err != nil {
		return row, fmt.Errorf("key: %w", err)
	}
	var text []string
	if err := json.Unmarshal([]byte(e.features), &text); err != nil {
		return row, fmt.Errorf("features: %w", err)
	}
	row.Features = make([]float64, len(text))
	for j, v := range text {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return row, fmt.Errorf("feature %d: %w", j, err)
		}
		row.Features[j] = f
	}
	if err := json.Unmarshal([]byte(e.attrs), &row.Attrs); err != nil {
		return row, fmt.Errorf("attrs: %w", err)
	}
	label := linkage.Label(e.label)
	if label != linkage.Unknown && !label.Known() {
		return row, fmt.Errorf("label %d out of range", e.label)
	}
	row.Label = label
	return row, nil
}
