package types

// Column is one output column of a converted dataset.
type Column struct {
	// Label is the output column label, e.g. "IMEAN" or "SIGFP"
	Label string `json:"label"`

	// Type is the single-character column type code ('H', 'J', 'Q', ...).
	// Status-derived columns are stored with type 'I'.
	Type byte `json:"type"`

	// DatasetID groups columns by originating experiment:
	// 0 = shared/base, 1 = crystal-specific
	DatasetID int `json:"dataset_id"`

	// Pos is the column's index in Dataset.Columns. Assigned once, after
	// all insertions (including unmerged bookkeeping columns) are done.
	Pos int `json:"pos"`
}

// Batch describes one observation batch of an unmerged dataset.
type Batch struct {
	// Number is the batch number written into the BATCH column
	Number int `json:"number"`

	// Cell holds the batch's cell parameters
	Cell UnitCell `json:"cell"`
}

// DatasetRef names one dataset entry of the output header.
type DatasetRef struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Wavelength float64 `json:"wavelength"`
}

// Dataset is the fully populated output model handed to a writer.
// It is built once per input block, never reused, and discarded after
// writing. Data is row-major: cell (r,c) lives at r*len(Columns)+c.
// Integers and flags are stored as float32 like every other cell.
type Dataset struct {
	Title      string       `json:"title,omitempty"`
	History    []string     `json:"history,omitempty"`
	Cell       UnitCell     `json:"cell"`
	SpaceGroup SpaceGroup   `json:"spacegroup"`
	Datasets   []DatasetRef `json:"datasets"`
	Columns    []Column     `json:"columns"`
	Batches    []Batch      `json:"batches,omitempty"`
	NumRows    int          `json:"num_rows"`
	Data       []float32    `json:"-"`
}

// CellAt returns the buffer value at row r, column c.
func (d *Dataset) CellAt(r, c int) float32 {
	return d.Data[r*len(d.Columns)+c]
}

// Row returns the r-th row as a slice aliasing the buffer.
func (d *Dataset) Row(r int) []float32 {
	w := len(d.Columns)
	return d.Data[r*w : (r+1)*w]
}

// ColumnByLabel returns the index of the first column with the given
// label, or -1.
func (d *Dataset) ColumnByLabel(label string) int {
	for i := range d.Columns {
		if d.Columns[i].Label == label {
			return i
		}
	}
	return -1
}
