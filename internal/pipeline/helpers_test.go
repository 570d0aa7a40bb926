package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"crmetl/internal/datasource"
	"crmetl/internal/datasource/file"
	"crmetl/internal/schema"
	"crmetl/internal/table"
	"crmetl/pkg/records"
)

var grupoHeader = []string{
	"Unidad", "M2", "Precio M2", "Asesor", "Cliente",
	"Precio Venta", "Fecha Carga contrato", "Status Venta", "Etapa",
}

var masivHeader = append([]string{"Desarrollo"}, grupoHeader...)

// writeSheet saves a one-sheet workbook with header and rows under dir.
func writeSheet(t *testing.T, dir, name string, header []string, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	hdr := make([]any, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	all := append([][]any{hdr}, rows...)
	for i, r := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		row := r
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("set row %d: %v", i, err)
		}
	}
	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
	return path
}

func sources(paths ...string) []datasource.Source {
	out := make([]datasource.Source, len(paths))
	for i, p := range paths {
		out[i] = file.NewLocal(p)
	}
	return out
}

// capture is a Publisher that keeps the final table for inspection.
type capture struct {
	tbl *table.Table
	out schema.Contract
	err error
}

func (c *capture) Publish(_ context.Context, t *table.Table, out schema.Contract) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.tbl, c.out = t, out
	return int64(t.Len()), nil
}

func rowsWhere(t *table.Table, col string, v any) []records.Record {
	var out []records.Record
	for _, r := range t.Rows {
		if r[col] == v {
			out = append(out, r)
		}
	}
	return out
}

// stepFunc is a test-only transformer.Step backed by a function.
type stepFunc struct {
	Label string
	Fn    func(*table.Table) error
}

func (s stepFunc) Name() string { return s.Label }

func (s stepFunc) Apply(t *table.Table) error { return s.Fn(t) }
