package convert

import (
	"fmt"
	"io"

	"github.com/reflbase/reflbase/internal/errors"
	"github.com/reflbase/reflbase/internal/spec"
	"github.com/reflbase/reflbase/pkg/types"
)

// resolved is the outcome of matching a conversion spec against one
// input loop: the output columns in spec order and, parallel to them,
// the input column index each reads from. Bookkeeping columns for
// unmerged data are not part of it; the engine inserts those afterward.
type resolved struct {
	columns    []types.Column
	indices    []int
	usesStatus bool
}

// resolveColumns matches spec entries against the loop's tags.
// Index entries are mandatory: a missing index tag fails resolution.
// Other entries whose tag is absent are skipped silently. Consecutive
// entries sharing a label are alternatives; the first tag found wins.
// In unmerged mode status entries are dropped even when present.
func resolveColumns(sp *spec.Spec, loop *types.Loop, unmerged bool, verbose bool, diag io.Writer) (*resolved, error) {
	prefix := loop.CategoryPrefix()
	res := &resolved{}
	for _, entry := range sp.Entries {
		tag := prefix + entry.Tag
		idx := loop.FindTag(tag)
		if idx == -1 {
			if entry.Kind == spec.KindIndex {
				return nil, errors.NewConvertError(errors.CodeMissingIndexColumn,
					"Miller index tag not found: "+tag)
			}
			continue
		}
		if n := len(res.columns); n > 0 && res.columns[n-1].Label == entry.Label {
			// A preceding alternative tag already claimed this label.
			continue
		}
		if unmerged && entry.Kind == spec.KindStatus {
			// Some early unmerged depositions carry a status column that is
			// always 'o'. It is meaningless per observation, so drop it.
			continue
		}
		col := types.Column{
			Label:     entry.Label,
			Type:      entry.Type,
			DatasetID: entry.DatasetID,
		}
		if entry.Kind == spec.KindStatus {
			col.Type = 'I'
			res.usesStatus = true
		}
		res.columns = append(res.columns, col)
		res.indices = append(res.indices, idx)
		if verbose {
			fmt.Fprintf(diag, "  %s -> %s\n", tag, col.Label)
		}
	}
	return res, nil
}
