package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"crmetl/internal/table"
	"crmetl/internal/transformer"
)

func grupoRow(advisor, client, date, status string) []any {
	return []any{"A-101", 120.5, 2500.0, advisor, client, 301250.0, date, status, "Fase 1"}
}

func masivRow(dev, advisor, date, status, stage string) []any {
	return []any{dev, "B-7", 90.0, 3000.0, advisor, "ana perez", 270000.0, date, status, stage}
}

func runGrupo(t *testing.T, rows [][]any) (Result, *capture, string) {
	t.Helper()
	dir := t.TempDir()
	in := writeSheet(t, dir, "grupo.xlsx", grupoHeader, rows)
	out := filepath.Join(dir, "out", "reporte-normalizado.xlsx")
	pub := &capture{}
	r := &Runner{Def: GrupoRaices(Options{}), Inputs: sources(in), Output: out, Publisher: pub}
	return r.Run(context.Background()), pub, out
}

/*
TestGrupo_FilterKeepsFinalizado covers the status filter end to end: of two
rows only the "Finalizado" one reaches the output workbook.
*/
func TestGrupo_FilterKeepsFinalizado(t *testing.T) {
	t.Parallel()

	res, pub, out := runGrupo(t, [][]any{
		grupoRow("karla soto", "juan", "2024-03-17", "Finalizado"),
		grupoRow("luis alfonso", "maria", "2024-03-18", "Pendiente"),
	})
	if !res.OK() {
		t.Fatalf("run failed: %v", res.Err)
	}
	if pub.tbl.Len() != 1 || res.Summary.TotalRecords != 1 {
		t.Fatalf("rows = %d, summary = %d; want 1", pub.tbl.Len(), res.Summary.TotalRecords)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if res.RunID == "" || res.Inserted != 1 {
		t.Fatalf("result = %+v", res)
	}
}

/*
TestGrupo_UnitAndDayFirstDate checks that a numeric unit leaves the run as a
number while a unit code stays text, and that a day-first export date is
truncated to its month instead of becoming null.
*/
func TestGrupo_UnitAndDayFirstDate(t *testing.T) {
	t.Parallel()

	numeric := grupoRow("said", "juan", "17/03/2024", "Finalizado")
	numeric[0] = 101.0
	res, pub, _ := runGrupo(t, [][]any{
		numeric,
		grupoRow("luis", "ana", "2024-03-17 10:30", "Finalizado"),
	})
	if !res.OK() {
		t.Fatalf("run failed: %v", res.Err)
	}
	if res.DateWarnings != 0 {
		t.Fatalf("date warnings = %d, want 0", res.DateWarnings)
	}
	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, r := range pub.tbl.Rows {
		if r["Fecha"] != march {
			t.Fatalf("row %d: Fecha = %#v, want %v", i, r["Fecha"], march)
		}
	}
	if got := pub.tbl.Rows[0]["Unidad"]; got != 101.0 {
		t.Fatalf("numeric Unidad = %#v, want 101.0", got)
	}
	if got := pub.tbl.Rows[1]["Unidad"]; got != "A-101" {
		t.Fatalf("text Unidad = %#v, want A-101", got)
	}
}

func TestGrupo_AdvisorRemapAndType(t *testing.T) {
	t.Parallel()

	res, pub, _ := runGrupo(t, [][]any{
		grupoRow("karla soto", "juan", "2024-03-17", "Finalizado"),
		grupoRow("eq.", "maria", "2024-04-02", "Finalizado"),
	})
	if !res.OK() {
		t.Fatalf("run failed: %v", res.Err)
	}
	raices := rowsWhere(pub.tbl, "Asesor", "Grupo Raices")
	if len(raices) != 1 || raices[0]["Tipo"] != "Interno" {
		t.Fatalf("Karla Soto rows = %#v", raices)
	}
	good := rowsWhere(pub.tbl, "Asesor", "Eq. Good Sales")
	if len(good) != 1 || good[0]["Tipo"] != "Externo" {
		t.Fatalf("Eq. rows = %#v", good)
	}
	if got := res.Summary.AdvisorTypes; got["Interno"] != 1 || got["Externo"] != 1 {
		t.Fatalf("advisor types = %v", got)
	}
	r := raices[0]
	if r["Marca"] != "Flamingo" || r["Desarrollo"] != "Flamingo" || r["Sucursal"] != "Merida" ||
		r["Modelo"] != "No identificado" || r["Sub"] != nil || r["Hunter"] != nil || r["Cliente"] != "Juan" {
		t.Fatalf("literals = %#v", r)
	}
}

func TestGrupo_OutputColumnsExact(t *testing.T) {
	t.Parallel()

	res, pub, _ := runGrupo(t, [][]any{grupoRow("said", "x", "2024-01-09", "Finalizado")})
	if !res.OK() {
		t.Fatalf("run failed: %v", res.Err)
	}
	want := GrupoRaices(Options{}).Output.Names()
	if got := pub.tbl.Columns(); !reflect.DeepEqual(got, want) {
		t.Fatalf("columns = %v\nwant %v", got, want)
	}
	if !reflect.DeepEqual(res.Summary.Columns, want) {
		t.Fatalf("summary columns = %v", res.Summary.Columns)
	}
}

/*
TestGrupo_DatesMonthStart checks that parseable dates are truncated to the
first of the month while an unparseable one becomes nil with a warning and
does not stop the run.
*/
func TestGrupo_DatesMonthStart(t *testing.T) {
	t.Parallel()

	res, pub, _ := runGrupo(t, [][]any{
		grupoRow("a", "x", "2024-03-17", "Finalizado"),
		grupoRow("b", "y", "not-a-date", "Finalizado"),
	})
	if !res.OK() {
		t.Fatalf("run failed: %v", res.Err)
	}
	if res.DateWarnings != 1 {
		t.Fatalf("date warnings = %d, want 1", res.DateWarnings)
	}
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	a := rowsWhere(pub.tbl, "Asesor", "A")
	if len(a) != 1 || !reflect.DeepEqual(a[0]["Fecha"], want) {
		t.Fatalf("row A = %#v", a)
	}
	b := rowsWhere(pub.tbl, "Asesor", "B")
	if len(b) != 1 || b[0]["Fecha"] != nil {
		t.Fatalf("row B = %#v", b)
	}
	if !res.Summary.DateMin.Equal(want) || !res.Summary.DateMax.Equal(want) {
		t.Fatalf("date range = %v..%v", res.Summary.DateMin, res.Summary.DateMax)
	}
}

func TestGrupo_MissingColumnFailsWithoutOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	header := []string{"Unidad", "M2", "Precio M2", "Asesor", "Precio Venta", "Fecha Carga contrato", "Status Venta", "Etapa"}
	in := writeSheet(t, dir, "grupo.xlsx", header, [][]any{
		{"A-1", 1.0, 1.0, "said", 1.0, "2024-03-17", "Finalizado", "Fase 1"},
	})
	out := filepath.Join(dir, "out.xlsx")
	res := (&Runner{Def: GrupoRaices(Options{}), Inputs: sources(in), Output: out}).Run(context.Background())

	if res.OK() || res.State != StateFailed || res.FailedAt != StateValidated {
		t.Fatalf("result = %+v", res)
	}
	if !errors.Is(res.Err, ErrSchemaInvalid) {
		t.Fatalf("err = %v; want ErrSchemaInvalid", res.Err)
	}
	var mc *MissingColumnsError
	if !errors.As(res.Err, &mc) || !reflect.DeepEqual(mc.Missing, []string{"Cliente"}) {
		t.Fatalf("missing = %#v", mc)
	}
	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("output must not exist, stat err = %v", err)
	}
}

func TestRun_Failures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := writeSheet(t, dir, "ok.xlsx", grupoHeader, [][]any{grupoRow("a", "b", "2024-03-17", "Finalizado")})
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	garbage := filepath.Join(dir, "garbage.xlsx")
	if err := os.WriteFile(garbage, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		inputs   []string
		output   string
		pub      Publisher
		sentinel error
		at       State
	}{
		{"missing_input", []string{filepath.Join(dir, "nope.xlsx")}, filepath.Join(dir, "o1.xlsx"), nil, ErrNotFound, StateLoaded},
		{"no_inputs", nil, filepath.Join(dir, "o2.xlsx"), nil, ErrNotFound, StateLoaded},
		{"unparseable_input", []string{garbage}, filepath.Join(dir, "o3.xlsx"), nil, ErrParseFailure, StateLoaded},
		{"unwritable_output", []string{good}, filepath.Join(blocker, "out.xlsx"), nil, ErrWriteFailure, StateSaved},
		{"publish_error", []string{good}, filepath.Join(dir, "o4.xlsx"), &capture{err: errors.New("db down")}, ErrPublishFailure, StatePublished},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := &Runner{Def: GrupoRaices(Options{}), Inputs: sources(tc.inputs...), Output: tc.output, Publisher: tc.pub}
			res := r.Run(context.Background())
			if res.State != StateFailed || res.FailedAt != tc.at {
				t.Fatalf("state=%s failedAt=%s err=%v", res.State, res.FailedAt, res.Err)
			}
			if !errors.Is(res.Err, tc.sentinel) {
				t.Fatalf("err = %v; want %v", res.Err, tc.sentinel)
			}
			var se *StepError
			if !errors.As(res.Err, &se) || se.State != tc.at {
				t.Fatalf("step error = %#v", se)
			}
		})
	}
}

/*
TestRun_PanicBecomesTransformFailure installs a normalize step that panics and
expects the runner to report a transform failure instead of crashing.
*/
func TestRun_PanicBecomesTransformFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := writeSheet(t, dir, "ok.xlsx", grupoHeader, [][]any{grupoRow("a", "b", "2024-03-17", "Finalizado")})
	def := GrupoRaices(Options{})
	def.Build = func(Hooks) Phases {
		return Phases{Normalize: []transformer.Step{
			stepFunc{Label: "boom", Fn: func(*table.Table) error { panic("boom") }},
		}}
	}
	out := filepath.Join(dir, "out.xlsx")
	res := (&Runner{Def: def, Inputs: sources(in), Output: out}).Run(context.Background())

	if res.FailedAt != StateNormalized || !errors.Is(res.Err, ErrTransform) {
		t.Fatalf("failedAt=%s err=%v", res.FailedAt, res.Err)
	}
	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("output must not exist")
	}
}

func TestRun_StepErrorIsTransformFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := writeSheet(t, dir, "ok.xlsx", grupoHeader, [][]any{grupoRow("a", "b", "2024-03-17", "Finalizado")})
	def := GrupoRaices(Options{})
	cause := errors.New("bad reshape")
	def.Build = func(Hooks) Phases {
		return Phases{Reshape: []transformer.Step{
			stepFunc{Label: "fail", Fn: func(*table.Table) error { return cause }},
		}}
	}
	res := (&Runner{Def: def, Inputs: sources(in), Output: filepath.Join(dir, "o.xlsx")}).Run(context.Background())

	if res.FailedAt != StateReshaped || !errors.Is(res.Err, ErrTransform) || !errors.Is(res.Err, cause) {
		t.Fatalf("failedAt=%s err=%v", res.FailedAt, res.Err)
	}
	var sf *transformer.StepFailed
	if !errors.As(res.Err, &sf) || sf.Step != "fail" {
		t.Fatalf("step failed = %#v", sf)
	}
}
