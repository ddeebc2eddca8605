package convert

import (
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/reflbase/reflbase/internal/asu"
	reflerr "github.com/reflbase/reflbase/internal/errors"
	"github.com/reflbase/reflbase/internal/spec"
	"github.com/reflbase/reflbase/pkg/types"
)

func testCell() types.UnitCell {
	return types.UnitCell{A: 25.4, B: 30.1, C: 41.9, Alpha: 90, Beta: 90, Gamma: 90}
}

func mergedBlock(tags []string, values []string) *types.Block {
	full := make([]string, len(tags))
	for i, tg := range tags {
		full[i] = "_refln." + tg
	}
	return &types.Block{
		Name:       "test",
		Cell:       testCell(),
		SpaceGroup: types.SpaceGroup{Number: 1, Name: "P 1"},
		Merged:     &types.Loop{Tags: full, Values: values},
	}
}

// Scenario: default spec, merged input, one clean row.
func TestConvertBlock_Merged(t *testing.T) {
	b := mergedBlock(
		[]string{"index_h", "index_k", "index_l", "intensity_meas", "intensity_sigma"},
		[]string{"1", "2", "3", "10.5", "0.9"},
	)
	c := &Converter{Spec: spec.Default(), Diag: io.Discard}

	ds, stats, err := c.ConvertBlock(b)
	if err != nil {
		t.Fatalf("ConvertBlock: %v", err)
	}
	wantLabels := []string{"H", "K", "L", "I", "SIGI"}
	if len(ds.Columns) != len(wantLabels) {
		t.Fatalf("got %d columns, want %d", len(ds.Columns), len(wantLabels))
	}
	for i, w := range wantLabels {
		if ds.Columns[i].Label != w {
			t.Errorf("column %d = %q, want %q", i, ds.Columns[i].Label, w)
		}
		if ds.Columns[i].Pos != i {
			t.Errorf("column %d Pos = %d", i, ds.Columns[i].Pos)
		}
	}
	want := []float32{1, 2, 3, 10.5, 0.9}
	if len(ds.Data) != len(want) {
		t.Fatalf("buffer size = %d, want %d", len(ds.Data), len(want))
	}
	for i, w := range want {
		if ds.Data[i] != w {
			t.Errorf("Data[%d] = %v, want %v", i, ds.Data[i], w)
		}
	}
	if ds.NumRows != 1 {
		t.Errorf("NumRows = %d", ds.NumRows)
	}
	if len(ds.Batches) != 0 {
		t.Error("merged dataset should have no batches")
	}
	if stats.Rows() != 1 || stats.Malformed() != 0 {
		t.Errorf("stats: rows=%d malformed=%d", stats.Rows(), stats.Malformed())
	}
}

// Scenario: forced unmerged with a reducer mapping (-1,0,0) -> (1,0,0), op 2.
func TestConvertBlock_ForcedUnmerged(t *testing.T) {
	b := mergedBlock(
		[]string{"index_h", "index_k", "index_l", "intensity_meas", "intensity_sigma"},
		[]string{"-1", "0", "0", "10.5", "0.9"},
	)
	c := &Converter{
		Spec:          spec.Default(),
		ForceUnmerged: true,
		Diag:          io.Discard,
		NewReducer: func(types.SpaceGroup) asu.Reducer {
			return asu.ReducerFunc(func(hkl types.HKL) (types.HKL, int) {
				if hkl[0] < 0 {
					return types.HKL{-hkl[0], -hkl[1], -hkl[2]}, 2
				}
				return hkl, 1
			})
		},
	}

	ds, _, err := c.ConvertBlock(b)
	if err != nil {
		t.Fatalf("ConvertBlock: %v", err)
	}
	wantLabels := []string{"H", "K", "L", "M/ISYM", "BATCH", "I", "SIGI"}
	for i, w := range wantLabels {
		if ds.Columns[i].Label != w {
			t.Fatalf("column %d = %q, want %q", i, ds.Columns[i].Label, w)
		}
		if ds.Columns[i].Pos != i {
			t.Errorf("column %d Pos = %d after insertion", i, ds.Columns[i].Pos)
		}
	}
	if ds.Columns[3].Type != 'Y' || ds.Columns[4].Type != 'B' {
		t.Errorf("bookkeeping column types = %c %c", ds.Columns[3].Type, ds.Columns[4].Type)
	}
	want := []float32{1, 0, 0, 2, 1, 10.5, 0.9}
	for i, w := range want {
		if ds.Data[i] != w {
			t.Errorf("Data[%d] = %v, want %v", i, ds.Data[i], w)
		}
	}
	if len(ds.Batches) != 1 || ds.Batches[0].Number != 1 || ds.Batches[0].Cell != testCell() {
		t.Errorf("batches = %+v", ds.Batches)
	}
}

// A block with only an unmerged loop selects unmerged mode on its own.
func TestConvertBlock_UnmergedLoopImpliesUnmergedMode(t *testing.T) {
	b := &types.Block{
		Name:       "raw",
		Cell:       testCell(),
		SpaceGroup: types.SpaceGroup{Number: 1, Name: "P 1"},
		Unmerged: &types.Loop{
			Tags: []string{
				"_diffrn_refln.index_h",
				"_diffrn_refln.index_k",
				"_diffrn_refln.index_l",
				"_diffrn_refln.intensity_net",
			},
			Values: []string{"2", "0", "1", "7.25"},
		},
	}
	c := &Converter{Spec: spec.Default(), Diag: io.Discard}

	ds, _, err := c.ConvertBlock(b)
	if err != nil {
		t.Fatalf("ConvertBlock: %v", err)
	}
	if got := ds.ColumnByLabel("M/ISYM"); got != 3 {
		t.Errorf("M/ISYM at %d, want 3", got)
	}
	if got := ds.ColumnByLabel("BATCH"); got != 4 {
		t.Errorf("BATCH at %d, want 4", got)
	}
	// Identity reducer by default: index unchanged, op tag 1, batch 1.
	want := []float32{2, 0, 1, 1, 1, 7.25}
	for i, w := range want {
		if ds.Data[i] != w {
			t.Errorf("Data[%d] = %v, want %v", i, ds.Data[i], w)
		}
	}
}

func TestConvertBlock_StatusColumn(t *testing.T) {
	b := mergedBlock(
		[]string{"index_h", "index_k", "index_l", "status", "F_meas_au"},
		[]string{
			"1", "0", "0", "o", "12.5",
			"2", "0", "0", "f", "13.5",
			"3", "0", "0", "x", "14.5",
		},
	)
	c := &Converter{Spec: spec.Default(), Diag: io.Discard}

	ds, _, err := c.ConvertBlock(b)
	if err != nil {
		t.Fatalf("ConvertBlock: %v", err)
	}
	fc := ds.ColumnByLabel("FreeR_flag")
	if fc != 3 {
		t.Fatalf("FreeR_flag at %d, want 3", fc)
	}
	if ds.Columns[fc].Type != 'I' {
		t.Errorf("FreeR_flag type = %c, want I", ds.Columns[fc].Type)
	}
	if ds.CellAt(0, fc) != 1 || ds.CellAt(1, fc) != 0 {
		t.Errorf("flags = %v %v", ds.CellAt(0, fc), ds.CellAt(1, fc))
	}
	if !math.IsNaN(float64(ds.CellAt(2, fc))) {
		t.Error("unknown status token should encode as NaN")
	}
}

// Scenario: a missing-marker token becomes NaN without a diagnostic; a
// malformed token becomes NaN with one diagnostic; the rows still convert.
func TestConvertBlock_MissingAndMalformedValues(t *testing.T) {
	b := mergedBlock(
		[]string{"index_h", "index_k", "index_l", "F_meas_au", "F_meas_sigma_au"},
		[]string{
			"1", "0", "0", "?", "0.5",
			"2", "0", "0", "12.0", "oops",
		},
	)
	var diag strings.Builder
	c := &Converter{Spec: spec.Default(), Diag: &diag}

	ds, stats, err := c.ConvertBlock(b)
	if err != nil {
		t.Fatalf("ConvertBlock: %v", err)
	}
	if ds.NumRows != 2 {
		t.Fatalf("NumRows = %d, malformed values must not drop rows", ds.NumRows)
	}
	fp := ds.ColumnByLabel("FP")
	sig := ds.ColumnByLabel("SIGFP")
	if !math.IsNaN(float64(ds.CellAt(0, fp))) {
		t.Error("missing marker should encode as NaN")
	}
	if !math.IsNaN(float64(ds.CellAt(1, sig))) {
		t.Error("malformed token should encode as NaN")
	}
	if ds.CellAt(1, fp) != 12.0 {
		t.Errorf("CellAt(1,FP) = %v", ds.CellAt(1, fp))
	}

	out := diag.String()
	if strings.Count(out, "is not a number") != 1 {
		t.Errorf("want exactly one malformed-value diagnostic, got: %q", out)
	}
	if !strings.Contains(out, "oops") {
		t.Errorf("diagnostic should name the token: %q", out)
	}
	cols := stats.Columns()
	if len(cols) != 2 || cols[0].Missing != 1 || cols[1].Malformed != 1 {
		t.Errorf("stats = %+v", cols)
	}
}

func TestConvertBlock_MissingIndexTagFailsBeforeRows(t *testing.T) {
	b := mergedBlock(
		[]string{"index_h", "index_l", "intensity_meas"},
		[]string{"1", "3", "10.5"},
	)
	c := &Converter{Spec: spec.Default(), Diag: io.Discard}

	ds, _, err := c.ConvertBlock(b)
	if err == nil {
		t.Fatal("conversion without index_k should fail")
	}
	if ds != nil {
		t.Error("no dataset may be emitted on a fatal resolution error")
	}
	var re *reflerr.ReflError
	if !errors.As(err, &re) || re.Code != reflerr.CodeMissingIndexColumn {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConvertBlock_NoLoop(t *testing.T) {
	b := &types.Block{Name: "empty"}
	c := &Converter{Spec: spec.Default(), Diag: io.Discard}

	_, _, err := c.ConvertBlock(b)
	if reflerr.GetCode(err) != reflerr.CodeNoReflLoop {
		t.Errorf("err = %v", err)
	}
}

// A flat value sequence that does not fill whole rows must fail up
// front instead of indexing past the buffer mid-conversion.
func TestConvertBlock_RaggedLoopIsFatal(t *testing.T) {
	b := mergedBlock(
		[]string{"index_h", "index_k", "index_l"},
		[]string{"1", "2", "3", "4"},
	)
	c := &Converter{Spec: spec.Default(), Diag: io.Discard}

	ds, _, err := c.ConvertBlock(b)
	if reflerr.GetCode(err) != reflerr.CodeMalformedLoop {
		t.Errorf("err = %v, want MALFORMED_LOOP", err)
	}
	if ds != nil {
		t.Error("no dataset may be emitted for a ragged loop")
	}

	b.Merged.Tags = nil
	if _, _, err := c.ConvertBlock(b); reflerr.GetCode(err) != reflerr.CodeMalformedLoop {
		t.Errorf("err = %v, want MALFORMED_LOOP for a loop with no tags", err)
	}
}

func TestConvertBlock_NonIntegerIndexIsFatal(t *testing.T) {
	b := mergedBlock(
		[]string{"index_h", "index_k", "index_l"},
		[]string{"1", "x", "3"},
	)
	c := &Converter{Spec: spec.Default(), Diag: io.Discard}

	_, _, err := c.ConvertBlock(b)
	if reflerr.GetCode(err) != reflerr.CodeBadIndexValue {
		t.Errorf("err = %v", err)
	}
}

func TestConvertBlock_DuplicateIndexDiagnostic(t *testing.T) {
	b := mergedBlock(
		[]string{"index_h", "index_k", "index_l"},
		[]string{
			"1", "2", "3",
			"1", "2", "3",
		},
	)
	var diag strings.Builder
	c := &Converter{Spec: spec.Default(), Verbose: true, Diag: &diag}

	_, stats, err := c.ConvertBlock(b)
	if err != nil {
		t.Fatalf("ConvertBlock: %v", err)
	}
	var dup int64
	for _, cs := range stats.Columns() {
		dup += cs.Duplicate
	}
	if dup != 1 {
		t.Errorf("duplicate count = %d, want 1", dup)
	}
	if !strings.Contains(diag.String(), "duplicate Miller index") {
		t.Errorf("missing duplicate diagnostic: %q", diag.String())
	}
}

func TestConvertBlock_TitleAndHistory(t *testing.T) {
	b := mergedBlock(
		[]string{"index_h", "index_k", "index_l"},
		[]string{"0", "0", "1"},
	)
	c := &Converter{
		Spec:    spec.Default(),
		Title:   "converted data",
		History: []string{"run one", "run two"},
		Diag:    io.Discard,
	}

	ds, _, err := c.ConvertBlock(b)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Title != "converted data" {
		t.Errorf("Title = %q", ds.Title)
	}
	if len(ds.History) != 2 || ds.History[1] != "run two" {
		t.Errorf("History = %v", ds.History)
	}
	if len(ds.Datasets) != 2 || ds.Datasets[0].Name != "HKL_base" {
		t.Errorf("Datasets = %+v", ds.Datasets)
	}
}
