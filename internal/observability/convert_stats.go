// Package observability provides per-conversion statistics used for
// verbose summaries and run reports.
package observability

import (
	"fmt"
	"io"
	"sort"
)

// ColumnStats accumulates value-quality counters for one output column.
type ColumnStats struct {
	Label     string
	Missing   int64 // explicit missing-value tokens, encoded as NaN silently
	Malformed int64 // non-numeric tokens, encoded as NaN with a diagnostic
	Duplicate int64 // duplicate Miller indices flagged in merged mode
}

// ConvertStats tracks column counters for one block conversion.
// Conversion is strictly sequential, so the tracker is not synchronized;
// a fresh tracker is used per block.
type ConvertStats struct {
	columns map[string]*ColumnStats
	rows    int64
}

// NewConvertStats creates an empty tracker.
func NewConvertStats() *ConvertStats {
	return &ConvertStats{columns: make(map[string]*ColumnStats)}
}

func (s *ConvertStats) column(label string) *ColumnStats {
	cs, ok := s.columns[label]
	if !ok {
		cs = &ColumnStats{Label: label}
		s.columns[label] = cs
	}
	return cs
}

// RecordMissing counts a missing-value token in the given column.
func (s *ConvertStats) RecordMissing(label string) {
	s.column(label).Missing++
}

// RecordMalformed counts a malformed numeric token in the given column.
func (s *ConvertStats) RecordMalformed(label string) {
	s.column(label).Malformed++
}

// RecordDuplicate counts a duplicate Miller index hit.
func (s *ConvertStats) RecordDuplicate(label string) {
	s.column(label).Duplicate++
}

// AddRows adds to the processed-row counter.
func (s *ConvertStats) AddRows(n int) {
	s.rows += int64(n)
}

// Rows returns the number of processed rows.
func (s *ConvertStats) Rows() int64 {
	return s.rows
}

// Malformed returns the total malformed-token count across columns.
func (s *ConvertStats) Malformed() int64 {
	var n int64
	for _, cs := range s.columns {
		n += cs.Malformed
	}
	return n
}

// Columns returns per-column stats sorted by label, skipping columns with
// no recorded events.
func (s *ConvertStats) Columns() []ColumnStats {
	out := make([]ColumnStats, 0, len(s.columns))
	for _, cs := range s.columns {
		out = append(out, *cs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Summarize writes a short human-readable summary to w.
func (s *ConvertStats) Summarize(w io.Writer) {
	fmt.Fprintf(w, "processed %d rows\n", s.rows)
	for _, cs := range s.Columns() {
		if cs.Missing == 0 && cs.Malformed == 0 && cs.Duplicate == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s: %d missing, %d malformed, %d duplicate\n",
			cs.Label, cs.Missing, cs.Malformed, cs.Duplicate)
	}
}
