// Package colfile serializes converted datasets into the .rcol binary
// columnar container. The layout is private to this package: a JSON
// header describing the dataset, followed by one snappy-compressed,
// checksummed block of float32 cells per column. Conversion code only
// sees the writer through its interface.
package colfile

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"

	"github.com/reflbase/reflbase/internal/errors"
	"github.com/reflbase/reflbase/pkg/types"
)

var magic = [4]byte{'R', 'C', 'O', 'L'}

const formatVersion uint16 = 1

// header is the JSON-encoded file header.
type header struct {
	FileID     string             `json:"file_id"`
	Title      string             `json:"title,omitempty"`
	History    []string           `json:"history,omitempty"`
	Cell       types.UnitCell     `json:"cell"`
	SpaceGroup types.SpaceGroup   `json:"spacegroup"`
	Datasets   []types.DatasetRef `json:"datasets"`
	Columns    []types.Column     `json:"columns"`
	Batches    []types.Batch      `json:"batches,omitempty"`
	NumRows    int                `json:"num_rows"`
}

// Writer writes datasets as .rcol files.
type Writer struct{}

// NewWriter creates a Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Write serializes ds to path. The file is written to a temporary
// sibling first and renamed into place, so a failed write never leaves
// a partial file at path. Failures come back as WRITE_FAILED errors.
func (w *Writer) Write(ds *types.Dataset, path string) error {
	if len(ds.Data) != ds.NumRows*len(ds.Columns) {
		return errors.NewWriteError(path,
			fmt.Errorf("buffer holds %d cells, want %d rows x %d columns",
				len(ds.Data), ds.NumRows, len(ds.Columns)))
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.NewWriteError(path, err)
	}
	tmpPath := tmp.Name()
	if err := writeTo(tmp, ds); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.NewWriteError(path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.NewWriteError(path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.NewWriteError(path, err)
	}
	return nil
}

func writeTo(f *os.File, ds *types.Dataset) error {
	hdr := header{
		FileID:     uuid.New().String(),
		Title:      ds.Title,
		History:    ds.History,
		Cell:       ds.Cell,
		SpaceGroup: ds.SpaceGroup,
		Datasets:   ds.Datasets,
		Columns:    ds.Columns,
		Batches:    ds.Batches,
		NumRows:    ds.NumRows,
	}
	hdrJSON, err := json.Marshal(&hdr)
	if err != nil {
		return fmt.Errorf("encoding header: %w", err)
	}

	if _, err := f.Write(magic[:]); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, formatVersion); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(hdrJSON))); err != nil {
		return err
	}
	if _, err := f.Write(hdrJSON); err != nil {
		return err
	}

	// One compressed block per column. Transposing out of the row-major
	// buffer here keeps same-typed values adjacent for compression.
	width := len(ds.Columns)
	raw := make([]byte, 4*ds.NumRows)
	for c := 0; c < width; c++ {
		for r := 0; r < ds.NumRows; r++ {
			bits := math.Float32bits(ds.Data[r*width+c])
			binary.LittleEndian.PutUint32(raw[4*r:], bits)
		}
		block := snappy.Encode(nil, raw)
		sum := murmur3.Sum64(block)
		if err := binary.Write(f, binary.LittleEndian, uint32(len(block))); err != nil {
			return err
		}
		if err := binary.Write(f, binary.LittleEndian, sum); err != nil {
			return err
		}
		if _, err := f.Write(block); err != nil {
			return err
		}
	}
	return f.Sync()
}
