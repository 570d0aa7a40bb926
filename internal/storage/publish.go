package storage

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync/atomic"

	"crmetl/internal/ddl"
	"crmetl/internal/metrics"
	"crmetl/internal/schema"
	"crmetl/internal/table"
)

// Publisher copies a normalized table into a database table whose columns
// are the snake_case forms of the output contract fields.
type Publisher struct {
	Job             string
	Kind            string
	DSN             string
	Table           string
	BatchSize       int
	AutoCreateTable bool
	// Truncate empties the target before loading, making reruns idempotent.
	Truncate bool
}

// Publish loads every row of t, in contract column order, and returns the
// number of rows inserted.
func (p Publisher) Publish(ctx context.Context, t *table.Table, out schema.Contract) (int64, error) {
	if t == nil {
		return 0, fmt.Errorf("storage: nil table")
	}
	d, err := DialectFor(p.Kind)
	if err != nil {
		return 0, err
	}
	td, err := ddl.FromContract(out, p.Table, d)
	if err != nil {
		return 0, err
	}
	headers := out.Names()
	auto := make([]bool, len(out.Fields))
	for i, f := range out.Fields {
		auto[i] = f.Type == schema.TypeAuto
	}
	columns := make([]string, len(td.Columns))
	for i, c := range td.Columns {
		columns[i] = c.Name
	}

	repo, err := New(ctx, Config{Kind: p.Kind, DSN: p.DSN, Table: p.Table, Columns: columns})
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", p.Kind, err)
	}
	defer repo.Close()

	if p.AutoCreateTable {
		if err := EnsureTable(ctx, p.Kind, repo, td); err != nil {
			return 0, err
		}
	}
	if p.Truncate {
		if err := Truncate(ctx, p.Kind, repo, p.Table); err != nil {
			return 0, err
		}
	}

	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan []any, batchSize)
	go func() {
		defer close(in)
		for _, r := range t.Rows {
			row := make([]any, len(headers))
			for i, h := range headers {
				row[i] = r[h]
				if auto[i] {
					row[i] = autoText(row[i])
				}
			}
			select {
			case in <- row:
			case <-ctx.Done():
				return
			}
		}
	}()

	var batches int64
	copyFn := func(ctx context.Context, cols []string, rows [][]any) (int64, error) {
		atomic.AddInt64(&batches, 1)
		return repo.CopyFrom(ctx, cols, rows)
	}
	n, err := LoadBatches(ctx, columns, in, batchSize, copyFn)
	metrics.RecordBatches(p.Job, atomic.LoadInt64(&batches))
	metrics.RecordRow(p.Job, metrics.KindInserted, n)
	if err != nil {
		return n, fmt.Errorf("load %s: %w", p.Table, err)
	}
	log.Printf("storage: kind=%s table=%s inserted=%d", p.Kind, p.Table, n)
	return n, nil
}

// autoText renders a number held by an auto column the way it would read in
// the spreadsheet, since the column is stored as text.
func autoText(v any) any {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	}
	return v
}
