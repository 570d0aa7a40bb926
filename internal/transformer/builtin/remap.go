package builtin

import "crmetl/pkg/records"

// Lookup resolves a raw value to its canonical form.
type Lookup interface {
	Lookup(string) (string, bool)
}

// Members reports set membership.
type Members interface {
	Contains(string) bool
}

// Remap replaces string values found in Names; everything else passes
// through unchanged.
type Remap struct {
	Column string
	Names  Lookup
}

func (m Remap) Apply(in []records.Record) []records.Record {
	for _, rec := range in {
		s, ok := rec[m.Column].(string)
		if !ok {
			continue
		}
		if to, hit := m.Names.Lookup(s); hit {
			rec[m.Column] = to
		}
	}
	return in
}

// Classify writes In to Target when Source is a member, Out otherwise
// (including nil). Report, if set, receives the per-label counts once per
// Apply.
type Classify struct {
	Source  string
	Target  string
	Members Members
	In      string
	Out     string
	Report  func(counts map[string]int)
}

func (c Classify) Apply(in []records.Record) []records.Record {
	counts := map[string]int{c.In: 0, c.Out: 0}
	for _, rec := range in {
		label := c.Out
		if s, ok := rec[c.Source].(string); ok && c.Members.Contains(s) {
			label = c.In
		}
		rec[c.Target] = label
		counts[label]++
	}
	if c.Report != nil {
		c.Report(counts)
	}
	return in
}

// SwapWhen moves the value of With into Column on rows where Column equals
// Equals, and sets With to Equals.
type SwapWhen struct {
	Column string
	Equals string
	With   string
}

func (s SwapWhen) Apply(in []records.Record) []records.Record {
	for _, rec := range in {
		if v, ok := rec[s.Column].(string); ok && v == s.Equals {
			rec[s.Column] = rec[s.With]
			rec[s.With] = s.Equals
		}
	}
	return in
}

// Derive sets Target to Keep where From equals Keep, and to Else elsewhere.
type Derive struct {
	Target string
	From   string
	Keep   string
	Else   any
}

func (d Derive) Apply(in []records.Record) []records.Record {
	for _, rec := range in {
		if v, ok := rec[d.From].(string); ok && v == d.Keep {
			rec[d.Target] = d.Keep
			continue
		}
		rec[d.Target] = d.Else
	}
	return in
}
