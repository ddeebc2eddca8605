package colfile

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/golang/snappy"
	"github.com/spaolacci/murmur3"

	"github.com/reflbase/reflbase/pkg/types"
)

// Read loads an .rcol file back into a dataset. It verifies the magic,
// the format version, and every column block's checksum.
func Read(path string) (*types.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	r := bytes.NewReader(data)

	var m [4]byte
	if _, err := io.ReadFull(r, m[:]); err != nil {
		return nil, fmt.Errorf("%s: truncated header: %w", path, err)
	}
	if m != magic {
		return nil, fmt.Errorf("%s: not an rcol file", path)
	}
	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("%s: truncated header: %w", path, err)
	}
	if version != formatVersion {
		return nil, fmt.Errorf("%s: unsupported format version %d", path, version)
	}
	var hdrLen uint32
	if err := binary.Read(r, binary.LittleEndian, &hdrLen); err != nil {
		return nil, fmt.Errorf("%s: truncated header: %w", path, err)
	}
	hdrJSON := make([]byte, hdrLen)
	if _, err := io.ReadFull(r, hdrJSON); err != nil {
		return nil, fmt.Errorf("%s: truncated header: %w", path, err)
	}
	var hdr header
	if err := json.Unmarshal(hdrJSON, &hdr); err != nil {
		return nil, fmt.Errorf("%s: decoding header: %w", path, err)
	}

	ds := &types.Dataset{
		Title:      hdr.Title,
		History:    hdr.History,
		Cell:       hdr.Cell,
		SpaceGroup: hdr.SpaceGroup,
		Datasets:   hdr.Datasets,
		Columns:    hdr.Columns,
		Batches:    hdr.Batches,
		NumRows:    hdr.NumRows,
		Data:       make([]float32, hdr.NumRows*len(hdr.Columns)),
	}

	width := len(hdr.Columns)
	for c := 0; c < width; c++ {
		var blockLen uint32
		if err := binary.Read(r, binary.LittleEndian, &blockLen); err != nil {
			return nil, fmt.Errorf("%s: truncated column %d: %w", path, c, err)
		}
		var sum uint64
		if err := binary.Read(r, binary.LittleEndian, &sum); err != nil {
			return nil, fmt.Errorf("%s: truncated column %d: %w", path, c, err)
		}
		block := make([]byte, blockLen)
		if _, err := io.ReadFull(r, block); err != nil {
			return nil, fmt.Errorf("%s: truncated column %d: %w", path, c, err)
		}
		if murmur3.Sum64(block) != sum {
			return nil, fmt.Errorf("%s: checksum mismatch in column %d (%s)",
				path, c, hdr.Columns[c].Label)
		}
		raw, err := snappy.Decode(nil, block)
		if err != nil {
			return nil, fmt.Errorf("%s: decompressing column %d: %w", path, c, err)
		}
		if len(raw) != 4*hdr.NumRows {
			return nil, fmt.Errorf("%s: column %d holds %d bytes, want %d",
				path, c, len(raw), 4*hdr.NumRows)
		}
		for row := 0; row < hdr.NumRows; row++ {
			bits := binary.LittleEndian.Uint32(raw[4*row:])
			ds.Data[row*width+c] = math.Float32frombits(bits)
		}
	}
	return ds, nil
}
