// Package convert implements the conversion core: resolving a conversion
// spec against an input block and assembling the row-major numeric buffer
// of the output dataset.
package convert

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/reflbase/reflbase/internal/asu"
	"github.com/reflbase/reflbase/internal/dedup"
	"github.com/reflbase/reflbase/internal/errors"
	"github.com/reflbase/reflbase/internal/observability"
	"github.com/reflbase/reflbase/internal/spec"
	"github.com/reflbase/reflbase/internal/table"
	"github.com/reflbase/reflbase/pkg/types"
)

// Writer serializes a fully populated dataset. The binary layout is the
// writer's concern; conversion never inspects it.
type Writer interface {
	Write(ds *types.Dataset, path string) error
}

// Converter turns input blocks into output datasets according to one
// immutable conversion spec. A Converter is built once per run and holds
// no per-block state; each ConvertBlock call owns its dataset exclusively.
type Converter struct {
	// Spec is the conversion specification. Required.
	Spec *spec.Spec

	// Title is copied into each output dataset's header.
	Title string

	// History lines are appended to each output dataset's header.
	History []string

	// ForceUnmerged converts even a merged loop in unmerged mode.
	ForceUnmerged bool

	// Verbose enables progress diagnostics on Diag.
	Verbose bool

	// Diag receives non-fatal diagnostics. Defaults to os.Stderr.
	Diag io.Writer

	// NewReducer builds the asymmetric-unit reducer for a block's
	// symmetry group. Defaults to asu.IdentityFactory.
	NewReducer asu.Factory
}

func (c *Converter) diag() io.Writer {
	if c.Diag != nil {
		return c.Diag
	}
	return os.Stderr
}

func (c *Converter) reducerFor(sg types.SpaceGroup) asu.Reducer {
	if c.NewReducer != nil {
		return c.NewReducer(sg)
	}
	return asu.IdentityFactory(sg)
}

// ConvertBlock converts one block into a populated dataset. The returned
// stats carry per-column missing/malformed counts for reporting.
// Malformed numeric values are not fatal; a missing reflection loop,
// a missing index column, or a non-integer index value is.
func (c *Converter) ConvertBlock(b *types.Block) (*types.Dataset, *observability.ConvertStats, error) {
	loop := b.ReflLoop()
	if loop == nil {
		return nil, nil, errors.NewInputError(errors.CodeNoReflLoop,
			"reflection table not found in block: "+b.Name)
	}
	if len(loop.Tags) == 0 || len(loop.Values)%len(loop.Tags) != 0 {
		return nil, nil, errors.NewInputError(errors.CodeMalformedLoop,
			fmt.Sprintf("block %s: %d values do not fill rows of %d tags",
				b.Name, len(loop.Values), len(loop.Tags)))
	}
	unmerged := c.ForceUnmerged || b.Merged == nil

	ds := &types.Dataset{
		Title:      c.Title,
		History:    append([]string(nil), c.History...),
		Cell:       b.Cell,
		SpaceGroup: b.SpaceGroup,
		Datasets: []types.DatasetRef{
			{ID: 0, Name: "HKL_base"},
			{ID: 1, Name: "unknown", Wavelength: b.Wavelength},
		},
	}

	if c.Verbose {
		fmt.Fprintf(c.diag(), "Searching tags with known column equivalents ...\n")
	}
	res, err := resolveColumns(c.Spec, loop, unmerged, c.Verbose, c.diag())
	if err != nil {
		return nil, nil, err
	}
	if len(res.indices) < 3 {
		return nil, nil, errors.NewConvertError(errors.CodeMissingIndexColumn,
			"conversion spec did not resolve the three Miller index columns")
	}

	ds.Columns = append(ds.Columns, res.columns...)

	var reducer asu.Reducer
	if unmerged {
		if c.Verbose {
			fmt.Fprintf(c.diag(), "Adding columns M/ISYM and BATCH for unmerged data ...\n")
		}
		// The two bookkeeping columns go right after the index triple.
		book := []types.Column{
			{Label: "M/ISYM", Type: 'Y', DatasetID: 1},
			{Label: "BATCH", Type: 'B', DatasetID: 1},
		}
		ds.Columns = append(ds.Columns[:3], append(book, ds.Columns[3:]...)...)
		ds.Batches = append(ds.Batches, types.Batch{Number: 1, Cell: b.Cell})
		reducer = c.reducerFor(b.SpaceGroup)
	}

	// Positions are final only now that every insertion has happened.
	for i := range ds.Columns {
		ds.Columns[i].Pos = i
	}

	rows := loop.Rows()
	width := len(ds.Columns)
	ds.NumRows = rows
	ds.Data = make([]float32, rows*width)

	stats := observability.NewConvertStats()
	var dupes *dedup.HKLFilter
	if !unmerged {
		dupes = dedup.NewHKLFilter(rows, 1e-4)
	}

	// Offset from a resolved-column index to its output-column index.
	off := 0
	if unmerged {
		off = 2
	}

	nan := float32(math.NaN())
	k := 0
	for i := 0; i < len(loop.Values); i += len(loop.Tags) {
		row := i / len(loop.Tags)

		var hkl types.HKL
		for ii := 0; ii < 3; ii++ {
			v := loop.Values[i+res.indices[ii]]
			n, err := table.AsInt(v)
			if err != nil {
				return nil, nil, errors.NewConvertError(errors.CodeBadIndexValue,
					fmt.Sprintf("row %d: Miller index is not an integer: %s", row, v))
			}
			hkl[ii] = n
		}
		if unmerged {
			reduced, opTag := reducer.Reduce(hkl)
			for j := 0; j < 3; j++ {
				ds.Data[k] = float32(reduced[j])
				k++
			}
			ds.Data[k] = float32(opTag)
			k++
			ds.Data[k] = 1 // batch number
			k++
		} else {
			for j := 0; j < 3; j++ {
				ds.Data[k] = float32(hkl[j])
				k++
			}
			if dupes.TestAndAdd(hkl) {
				stats.RecordDuplicate("HKL")
				if c.Verbose {
					fmt.Fprintf(c.diag(), "duplicate Miller index %v in row %d\n", hkl, row)
				}
			}
		}

		j := 3
		if res.usesStatus {
			ds.Data[k] = StatusFlag(loop.Values[i+res.indices[j]])
			k++
			j++
		}
		for ; j < len(res.indices); j++ {
			v := loop.Values[i+res.indices[j]]
			label := ds.Columns[j+off].Label
			if table.IsMissing(v) {
				ds.Data[k] = nan
				stats.RecordMissing(label)
			} else if f, err := table.AsNumber(v); err != nil {
				ds.Data[k] = nan
				stats.RecordMalformed(label)
				fmt.Fprintf(c.diag(), "Value #%d in the loop is not a number: %s\n",
					i+res.indices[j], v)
			} else {
				ds.Data[k] = float32(f)
			}
			k++
		}
	}
	stats.AddRows(rows)
	if c.Verbose {
		stats.Summarize(c.diag())
	}
	return ds, stats, nil
}
