package pipeline

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"crmetl/internal/table"
)

// Summary is a read-only snapshot of a successful run's output.
type Summary struct {
	RunID        string
	Pipeline     string
	TotalRecords int
	Columns      []string
	// DateMin and DateMax are zero when the date column holds no dates.
	DateMin       time.Time
	DateMax       time.Time
	AdvisorsCount int
	AdvisorTypes  map[string]int
}

// Summarize computes the summary of t using the columns named by def.
func Summarize(runID string, def Definition, t *table.Table) Summary {
	s := Summary{
		RunID:        runID,
		Pipeline:     def.Name,
		AdvisorTypes: map[string]int{},
	}
	if t == nil {
		return s
	}
	s.TotalRecords = t.Len()
	s.Columns = t.Columns()

	for _, v := range t.Column(def.DateColumn) {
		d, ok := v.(time.Time)
		if !ok {
			continue
		}
		if s.DateMin.IsZero() || d.Before(s.DateMin) {
			s.DateMin = d
		}
		if s.DateMax.IsZero() || d.After(s.DateMax) {
			s.DateMax = d
		}
	}

	advisors := map[string]struct{}{}
	for _, v := range t.Column(def.AdvisorColumn) {
		if v != nil {
			advisors[fmt.Sprint(v)] = struct{}{}
		}
	}
	s.AdvisorsCount = len(advisors)

	for _, v := range t.Column(def.TypeColumn) {
		if v != nil {
			s.AdvisorTypes[fmt.Sprint(v)]++
		}
	}
	return s
}

func formatDay(d time.Time) string {
	if d.IsZero() {
		return "-"
	}
	return d.Format("2006-01-02")
}

// WriteTo prints the summary as an aligned two-column report.
func (s Summary) WriteTo(w io.Writer) (int64, error) {
	rows := [][2]string{
		{"Run", s.RunID},
		{"Pipeline", s.Pipeline},
		{"Registros", fmt.Sprint(s.TotalRecords)},
		{"Columnas", strings.Join(s.Columns, ", ")},
		{"Fecha mínima", formatDay(s.DateMin)},
		{"Fecha máxima", formatDay(s.DateMax)},
		{"Asesores únicos", fmt.Sprint(s.AdvisorsCount)},
	}
	types := make([]string, 0, len(s.AdvisorTypes))
	for k := range s.AdvisorTypes {
		types = append(types, k)
	}
	sort.Strings(types)
	for _, k := range types {
		rows = append(rows, [2]string{"Tipo " + k, fmt.Sprint(s.AdvisorTypes[k])})
	}

	width := 0
	for _, r := range rows {
		if n := runewidth.StringWidth(r[0]); n > width {
			width = n
		}
	}
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(runewidth.FillRight(r[0], width))
		b.WriteString("  ")
		b.WriteString(r[1])
		b.WriteByte('\n')
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
