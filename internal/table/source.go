package table

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/reflbase/reflbase/pkg/types"
)

// Source supplies the blocks of one input dataset in their original order.
// Parsers for concrete text grammars implement this interface outside the
// module; reflbase ships an in-memory source and a JSON-encoded one.
type Source interface {
	Blocks() ([]*types.Block, error)
}

// MemorySource is a Source over blocks already in memory.
type MemorySource []*types.Block

// Blocks returns the wrapped blocks.
func (m MemorySource) Blocks() ([]*types.Block, error) {
	return []*types.Block(m), nil
}

// jsonFile is the on-disk shape read by JSONSource.
type jsonFile struct {
	Blocks []*types.Block `json:"blocks"`
}

// JSONSource reads blocks from a JSON interchange file. This is the
// format the CLI consumes; upstream parsers dump their table model into
// it. The file holds either {"blocks": [...]} or a bare block array.
type JSONSource struct {
	Path string
}

// Blocks reads and decodes the file. Path "-" reads from stdin.
func (j JSONSource) Blocks() ([]*types.Block, error) {
	var r io.Reader
	if j.Path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(j.Path)
		if err != nil {
			return nil, fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	var wrapped jsonFile
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Blocks != nil {
		return validateBlocks(wrapped.Blocks)
	}
	var bare []*types.Block
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("decoding input: %w", err)
	}
	return validateBlocks(bare)
}

// validateBlocks rejects loops whose flat value sequence is not a whole
// number of rows.
func validateBlocks(blocks []*types.Block) ([]*types.Block, error) {
	for _, b := range blocks {
		for _, l := range []*types.Loop{b.Merged, b.Unmerged} {
			if l == nil {
				continue
			}
			if len(l.Tags) == 0 {
				return nil, fmt.Errorf("block %s: loop with no tags", b.Name)
			}
			if len(l.Values)%len(l.Tags) != 0 {
				return nil, fmt.Errorf("block %s: %d values do not fill rows of %d tags",
					b.Name, len(l.Values), len(l.Tags))
			}
		}
	}
	return blocks, nil
}
