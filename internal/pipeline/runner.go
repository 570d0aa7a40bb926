// Package pipeline runs one business pipeline end to end: load the input
// workbooks, validate the required columns, filter, normalize and reshape the
// rows, save the normalized workbook and optionally publish it to a database.
//
// A run is a strictly sequential state machine. The first failing state ends
// the run with a *StepError; nothing after it executes, so a run that fails
// before saved never produces an output file. A publish failure leaves the
// saved workbook in place.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"crmetl/internal/datasource"
	"crmetl/internal/metrics"
	"crmetl/internal/schema"
	"crmetl/internal/spreadsheet"
	"crmetl/internal/table"
	"crmetl/internal/transformer"
	"crmetl/internal/transformer/builtin"
	"crmetl/internal/transformer/shape"
)

// Publisher loads the final table somewhere after the workbook is saved.
type Publisher interface {
	Publish(ctx context.Context, t *table.Table, out schema.Contract) (int64, error)
}

// Runner executes a Definition over a fixed set of inputs.
type Runner struct {
	Def    Definition
	Inputs []datasource.Source
	// Output is the workbook path written on success.
	Output string
	// Reader parses each input; nil means xlsx, first sheet.
	Reader spreadsheet.Parser
	// Publisher is optional.
	Publisher Publisher
	// Job labels metrics; defaults to Def.Name.
	Job string
}

// Result describes how a run ended.
type Result struct {
	RunID string
	// State is StateDone on success, StateFailed otherwise.
	State State
	// FailedAt is the state the run was trying to reach when it failed.
	FailedAt State
	Err      error

	Summary      Summary
	Duration     time.Duration
	Inserted     int64
	DateWarnings int
}

// OK reports whether the run reached StateDone.
func (r Result) OK() bool { return r.State == StateDone }

type run struct {
	*Runner
	ctx   context.Context
	res   *Result
	job   string
	tbl   *table.Table
	dates *warnAgg
	types map[string]int
}

// Run executes the pipeline once. It never panics and never returns a nil
// Result; failures are reported in Result.Err as a *StepError.
func (r *Runner) Run(ctx context.Context) Result {
	start := time.Now()
	res := Result{RunID: uuid.NewString(), State: StateStart}
	rn := &run{Runner: r, ctx: ctx, res: &res, job: r.Job, dates: newWarnAgg(warnLimit)}
	if rn.job == "" {
		rn.job = r.Def.Name
	}
	log.Printf("pipeline: run=%s pipeline=%s inputs=%d output=%s", res.RunID, r.Def.Name, len(r.Inputs), r.Output)

	ok := rn.step(StateLoaded, rn.load) &&
		rn.step(StateValidated, rn.validate) &&
		rn.step(StateFiltered, rn.filter) &&
		rn.step(StateNormalized, rn.normalize) &&
		rn.step(StateReshaped, rn.reshape) &&
		rn.step(StateSaved, rn.save)
	if ok && r.Publisher != nil {
		ok = rn.step(StatePublished, rn.publish)
	}

	res.Duration = time.Since(start)
	res.DateWarnings = rn.dates.total()
	if ok {
		res.State = StateDone
		res.Summary = Summarize(res.RunID, r.Def, rn.tbl)
		log.Printf("pipeline: run=%s done rows=%d in %s", res.RunID, rn.tbl.Len(), res.Duration.Round(time.Millisecond))
	} else {
		log.Printf("pipeline: run=%s failed at %s: %v", res.RunID, res.FailedAt, res.Err)
	}
	metrics.RecordRun(rn.job, r.Def.Name, res.Err)
	return res
}

// step runs fn as the transition into next. Panics are converted into
// transform failures; errors that are not already a *StepError are wrapped
// with kind.
func (rn *run) step(next State, fn func() error) (ok bool) {
	t0 := time.Now()
	var err error
	func() {
		defer func() {
			if p := recover(); p != nil {
				err = fail(next, KindTransform, fmt.Errorf("panic: %v", p))
			}
		}()
		err = fn()
	}()
	metrics.RecordStep(rn.job, string(next), err, time.Since(t0))

	if err != nil {
		var se *StepError
		if !errors.As(err, &se) {
			se = fail(next, KindTransform, err)
		}
		rn.res.State = StateFailed
		rn.res.FailedAt = next
		rn.res.Err = se
		return false
	}
	rn.res.State = next
	return true
}

func (rn *run) load() error {
	if len(rn.Inputs) == 0 {
		return fail(StateLoaded, KindNotFound, errors.New("no input sources"))
	}
	reader := rn.Reader
	if reader == nil {
		reader = spreadsheet.XLSX{}
	}

	parts := make([]*table.Table, 0, len(rn.Inputs))
	for _, src := range rn.Inputs {
		t, err := readOne(rn.ctx, src, reader)
		if err != nil {
			return err
		}
		log.Printf("load: %s %v", src.Name(), t)
		parts = append(parts, t)
	}

	t := table.Concat(parts...)
	loaded := t.Len()
	metrics.RecordRow(rn.job, metrics.KindLoaded, int64(loaded))
	if rn.Def.DedupInputs {
		t.Rows = builtin.DropDuplicates{Columns: t.Columns()}.Apply(t.Rows)
		dropped := loaded - t.Len()
		metrics.RecordRow(rn.job, metrics.KindDuplicatesDropped, int64(dropped))
		log.Printf("load: combined rows=%d duplicates_dropped=%d", t.Len(), dropped)
	}
	rn.tbl = t
	return nil
}

func readOne(ctx context.Context, src datasource.Source, p spreadsheet.Parser) (*table.Table, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fail(StateLoaded, KindNotFound, err)
		}
		return nil, fail(StateLoaded, KindParseFailure, fmt.Errorf("open %s: %w", src.Name(), err))
	}
	defer rc.Close()

	t, err := p.Parse(rc)
	if err != nil {
		return nil, fail(StateLoaded, KindParseFailure, fmt.Errorf("parse %s: %w", src.Name(), err))
	}
	return t, nil
}

func (rn *run) validate() error {
	in := rn.Def.Input
	if missing := in.Missing(rn.tbl.Columns()); len(missing) > 0 {
		err := &MissingColumnsError{Contract: in.Name, Missing: missing}
		log.Printf("validate: %v", err)
		return fail(StateValidated, KindSchemaInvalid, err)
	}
	log.Printf("validate: ok required=%d columns=%d", len(in.Required()), len(rn.tbl.Columns()))

	rn.tbl.Rows = builtin.Coerce{Types: in.Types()}.Apply(rn.tbl.Rows)
	bad := newWarnAgg(warnLimit)
	check := &builtin.Validate{Contract: in, Reject: func(r builtin.RejectedRow) {
		bad.add(fmt.Sprintf("loaded record %d: %s", r.Row, r.Reason))
	}}
	rn.tbl.Rows = check.Apply(rn.tbl.Rows)
	bad.log("validate: type warnings")
	if len(rn.Def.Working) > 0 {
		rn.tbl.Reindex(rn.Def.Working)
	}
	return nil
}

func (rn *run) phases() Phases {
	return rn.Def.Build(Hooks{
		DateWarning: func(e *builtin.ParseError) { rn.dates.add(e.Error()) },
		Classified:  func(c map[string]int) { rn.types = c },
	})
}

func (rn *run) filter() error {
	before := rn.tbl.Len()
	if err := transformer.Run(rn.tbl, rn.phases().Filter...); err != nil {
		return err
	}
	kept := rn.tbl.Len()
	pct := 0.0
	if before > 0 {
		pct = 100 * float64(kept) / float64(before)
	}
	log.Printf("filter: kept=%d/%d (%.1f%%)", kept, before, pct)
	metrics.RecordRow(rn.job, metrics.KindFilteredOut, int64(before-kept))
	return nil
}

func (rn *run) normalize() error {
	if err := transformer.Run(rn.tbl, rn.phases().Normalize...); err != nil {
		return err
	}
	rn.dates.log("normalize: date parse warnings")
	metrics.RecordRow(rn.job, metrics.KindDateParseErrors, int64(rn.dates.total()))
	return nil
}

func (rn *run) reshape() error {
	steps := append(rn.phases().Reshape, shape.Reindex{Columns: rn.Def.Output.Names()})
	if err := transformer.Run(rn.tbl, steps...); err != nil {
		return err
	}
	if rn.types != nil {
		log.Printf("reshape: advisor types %v", rn.types)
	}
	return nil
}

func (rn *run) save() error {
	if err := spreadsheet.Write(rn.Output, rn.tbl); err != nil {
		return fail(StateSaved, KindWriteFailure, fmt.Errorf("write %s: %w", rn.Output, err))
	}
	metrics.RecordRow(rn.job, metrics.KindWritten, int64(rn.tbl.Len()))
	log.Printf("save: wrote %d rows to %s", rn.tbl.Len(), rn.Output)
	return nil
}

func (rn *run) publish() error {
	n, err := rn.Publisher.Publish(rn.ctx, rn.tbl, rn.Def.Output)
	if err != nil {
		return fail(StatePublished, KindPublish, err)
	}
	rn.res.Inserted = n
	return nil
}
