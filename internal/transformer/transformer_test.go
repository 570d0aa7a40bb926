package transformer

import (
	"errors"
	"reflect"
	"testing"

	"crmetl/internal/table"
	"crmetl/pkg/records"
)

/*
setField mutates each record in place by setting key -> value.
*/
type setField struct {
	key string
	val any
}

func (t setField) Apply(in []records.Record) []records.Record {
	for i := range in {
		in[i][t.key] = t.val
	}
	return in
}

/*
keepStatus keeps records whose "status" equals want, filtering in place.
*/
type keepStatus struct{ want string }

func (t keepStatus) Apply(in []records.Record) []records.Record {
	out := in[:0]
	for _, r := range in {
		if r["status"] == t.want {
			out = append(out, r)
		}
	}
	return out
}

// stepFunc is a Step backed by a function.
type stepFunc struct {
	label string
	fn    func(*table.Table) error
}

func (s stepFunc) Name() string { return s.label }

func (s stepFunc) Apply(t *table.Table) error { return s.fn(t) }

func TestRun_RowsInOrder(t *testing.T) {
	tb := table.New([]string{"id", "a"}, []records.Record{{"id": 1}})
	err := Run(tb,
		Rows{Label: "first", T: setField{key: "a", val: "first"}},
		Rows{Label: "second", T: setField{key: "a", val: "second"}},
		Rows{Label: "third", T: setField{key: "b", val: "third"}, Adds: []string{"b"}},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := records.Record{"id": 1, "a": "second", "b": "third"}
	if !reflect.DeepEqual(tb.Rows[0], want) {
		t.Fatalf("composition mismatch:\n got: %#v\nwant: %#v", tb.Rows[0], want)
	}
}

func TestRun_FilterThenMutate(t *testing.T) {
	tb := table.New([]string{"status", "id"}, []records.Record{
		{"status": "Finalizado", "id": 1},
		{"status": "Pendiente", "id": 2},
		{"status": "Finalizado", "id": 3},
	})
	err := Run(tb,
		Rows{Label: "status", T: keepStatus{want: "Finalizado"}},
		Rows{Label: "tag", T: setField{key: "tag", val: "ok"}, Adds: []string{"tag"}},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tb.Len() != 2 || tb.Rows[0]["id"] != 1 || tb.Rows[1]["id"] != 3 {
		t.Fatalf("unexpected survivors: %#v", tb.Rows)
	}
	for _, r := range tb.Rows {
		if r["tag"] != "ok" {
			t.Fatalf("mutate-after-filter missing tag on %#v", r)
		}
	}
}

func TestRowsStep_DeclaresColumns(t *testing.T) {
	tb := table.New([]string{"id"}, []records.Record{{"id": 1}})
	step := Rows{Label: "tag", T: setField{key: "tag", val: "x"}, Adds: []string{"tag"}}

	if err := Run(tb, step); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !tb.Has("tag") {
		t.Fatalf("column tag not declared: %v", tb.Columns())
	}
	if tb.Rows[0]["tag"] != "x" {
		t.Fatalf("row not rewritten: %#v", tb.Rows[0])
	}
}

func TestRun_StopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	var after bool

	tb := table.New(nil, nil)
	err := Run(tb,
		stepFunc{label: "ok", fn: func(*table.Table) error { return nil }},
		stepFunc{label: "bad", fn: func(*table.Table) error { return boom }},
		stepFunc{label: "later", fn: func(*table.Table) error { after = true; return nil }},
	)

	var sf *StepFailed
	if !errors.As(err, &sf) || sf.Step != "bad" {
		t.Fatalf("err = %v; want StepFailed for step bad", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("errors.Is(err, boom) = false")
	}
	if after {
		t.Fatalf("steps after a failure must not run")
	}
}
