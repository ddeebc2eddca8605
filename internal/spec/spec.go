// Package spec loads and validates conversion specifications: the ordered
// mapping from input reflection tags to output column labels, types, and
// dataset ids.
package spec

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/reflbase/reflbase/internal/errors"
)

// Kind classifies a spec entry once at load time, so the conversion core
// never branches on the raw type-code character.
type Kind int

const (
	// KindNumeric is a regular data column parsed as a number.
	KindNumeric Kind = iota

	// KindIndex is a mandatory Miller-index column (type code 'H').
	// Resolution fails if its tag is absent from the input.
	KindIndex

	// KindStatus is the free-flag status pseudo-type (type code 's').
	// Its value is a textual token encoded via the status encoder and the
	// output column is stored with type 'I'.
	KindStatus
)

// Entry is one line of a conversion spec. Alternative input tags for the
// same output label must be consecutive; during resolution the first tag
// found wins and later alternatives are ignored.
type Entry struct {
	// Tag is the input tag without its category prefix, e.g. "intensity_meas"
	Tag string

	// Label is the output column label, e.g. "IMEAN"
	Label string

	// Type is the output column type code. For status entries this is the
	// raw 's'; the resolved output column carries 'I' instead.
	Type byte

	// Kind is the closed classification derived from Type.
	Kind Kind

	// DatasetID is 0 (shared/base) or 1 (crystal-specific)
	DatasetID int
}

// Spec is an ordered, immutable conversion specification.
type Spec struct {
	Entries []Entry
}

// kindOf resolves the classification of a type code.
func kindOf(typeCode byte) Kind {
	switch typeCode {
	case 'H':
		return KindIndex
	case 's':
		return KindStatus
	default:
		return KindNumeric
	}
}

// parseLine parses one spec line into an Entry. lineno is 1-based and is
// only used for error context. Returns (entry, ok, err); ok is false for
// blank lines.
func parseLine(line string, lineno int) (Entry, bool, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return Entry{}, false, nil
	}
	if len(tokens) != 4 {
		return Entry{}, false, errors.NewSpecError(lineno, line, "line should have 4 words")
	}
	if len(tokens[2]) != 1 {
		return Entry{}, false, errors.NewSpecError(lineno, line, "column type must be a single character")
	}
	if len(tokens[3]) != 1 || (tokens[3][0] != '0' && tokens[3][0] != '1') {
		return Entry{}, false, errors.NewSpecError(lineno, line, "dataset id must be 0 or 1")
	}
	typeCode := tokens[2][0]
	return Entry{
		Tag:       tokens[0],
		Label:     tokens[1],
		Type:      typeCode,
		Kind:      kindOf(typeCode),
		DatasetID: int(tokens[3][0] - '0'),
	}, true, nil
}

// Parse reads a spec from r. Blank lines are ignored; there is no comment
// syntax. Any malformed line fails the whole load: no partial spec is
// ever returned.
func Parse(r io.Reader) (*Spec, error) {
	s := &Spec{}
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		entry, ok, err := parseLine(scanner.Text(), lineno)
		if err != nil {
			return nil, err
		}
		if ok {
			s.Entries = append(s.Entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading spec: %w", err)
	}
	return s, nil
}

// Load reads a spec from the file at path.
func Load(path string) (*Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening spec file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Print writes the spec to w in the same 4-token format Load accepts,
// preceded by a comment header describing the columns. The header lines
// start with '#' purely for the reader's benefit; Parse treats a '#' line
// as malformed, so a printed spec must have the header stripped before
// being fed back in.
func (s *Spec) Print(w io.Writer) error {
	header := "# Each line in the spec contains four words:\n" +
		"# - input tag (without category) of the reflection table\n" +
		"# - output column label\n" +
		"# - output column type\n" +
		"# - output dataset for the column (must be 0 or 1)\n"
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	for _, e := range s.Entries {
		if _, err := fmt.Fprintf(w, "%s %s %c %d\n", e.Tag, e.Label, e.Type, e.DatasetID); err != nil {
			return err
		}
	}
	return nil
}
