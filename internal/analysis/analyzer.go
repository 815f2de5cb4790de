package analysis

import "github.com/runnerr0/webpersona/internal/traits"

// Analyzer runs the scoring pipeline against an injected trait table. It
// holds no mutable state, so one Analyzer may serve concurrent runs.
type Analyzer struct {
	table *traits.Table
}

// NewAnalyzer returns an Analyzer over table. A nil table falls back to the
// built-in one.
func NewAnalyzer(table *traits.Table) *Analyzer {
	if table == nil {
		table = traits.DefaultTable()
	}
	return &Analyzer{table: table}
}

// Analyze scores records. An empty or entirely malformed input produces the
// zeroed result: neutral/unknown/other, all counts and scores zero.
func (a *Analyzer) Analyze(records []VisitRecord) Result {
	return Select(Aggregate(records, a.table), a.table)
}

// Analyze scores records against the built-in trait table.
func Analyze(records []VisitRecord) Result {
	return NewAnalyzer(nil).Analyze(records)
}
