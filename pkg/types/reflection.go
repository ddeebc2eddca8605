// Package types provides core data types for reflbase.
package types

import "fmt"

// HKL is a Miller index triple identifying a reflection.
type HKL [3]int

// String formats the triple as "(h k l)".
func (h HKL) String() string {
	return fmt.Sprintf("(%d %d %d)", h[0], h[1], h[2])
}

// UnitCell holds the crystallographic cell parameters.
// Lengths are in angstroms, angles in degrees.
type UnitCell struct {
	A     float64 `json:"a"`
	B     float64 `json:"b"`
	C     float64 `json:"c"`
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

// IsSet reports whether the cell parameters have been populated.
func (c UnitCell) IsSet() bool {
	return c.A > 0 && c.B > 0 && c.C > 0
}

// SpaceGroup identifies the symmetry group of a block.
// The operator tables themselves live outside this module; reducers
// working in a given group are injected (see internal/asu).
type SpaceGroup struct {
	// Number is the IT space group number (1-230), 0 if unknown
	Number int `json:"number"`

	// Name is the Hermann-Mauguin symbol, e.g. "P 21 21 21"
	Name string `json:"name"`
}
