package types

import "strings"

// Loop is one tabular group of reflection records: an ordered tag list
// sharing a single category prefix and a flat, row-major value sequence
// of length rows x len(Tags). Values are kept as raw text tokens; all
// numeric interpretation happens during conversion.
type Loop struct {
	Tags   []string `json:"tags"`
	Values []string `json:"values"`
}

// Rows returns the number of complete rows in the loop.
func (l *Loop) Rows() int {
	if l == nil || len(l.Tags) == 0 {
		return 0
	}
	return len(l.Values) / len(l.Tags)
}

// CategoryPrefix returns the shared prefix of the loop's tags, up to and
// including the first '.', e.g. "_refln." for "_refln.index_h".
// Returns "" for an empty loop or a tag without a separator.
func (l *Loop) CategoryPrefix() string {
	if l == nil || len(l.Tags) == 0 {
		return ""
	}
	dot := strings.IndexByte(l.Tags[0], '.')
	if dot < 0 {
		return ""
	}
	return l.Tags[0][:dot+1]
}

// FindTag returns the column index of the given full tag, or -1.
func (l *Loop) FindTag(tag string) int {
	for i, t := range l.Tags {
		if t == tag {
			return i
		}
	}
	return -1
}

// Block is one self-contained named group of reflection records from the
// input dataset, together with its experiment metadata. A block carries a
// merged loop, an unmerged loop, or both; conversion prefers the merged
// loop unless unmerged mode is forced.
type Block struct {
	Name       string     `json:"name"`
	Cell       UnitCell   `json:"cell"`
	SpaceGroup SpaceGroup `json:"spacegroup"`
	Wavelength float64    `json:"wavelength"`

	// Merged holds the canonical merged-reflection loop, nil if absent.
	Merged *Loop `json:"merged,omitempty"`

	// Unmerged holds the per-observation loop, nil if absent.
	Unmerged *Loop `json:"unmerged,omitempty"`
}

// ReflLoop returns the loop conversion should read: the merged loop when
// present, otherwise the unmerged one. Returns nil if the block has neither.
func (b *Block) ReflLoop() *Loop {
	if b.Merged != nil {
		return b.Merged
	}
	return b.Unmerged
}
