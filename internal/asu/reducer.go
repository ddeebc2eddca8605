// Package asu defines the asymmetric-unit reduction interface used for
// unmerged data. The symmetry-operator group tables live outside this
// module; a crystallographic symmetry engine provides concrete reducers.
package asu

import "github.com/reflbase/reflbase/pkg/types"

// Reducer maps an observed Miller index to its asymmetric-unit
// representative and reports the symmetry-operator tag used. The reducer
// is the source of truth for the reduced triple; conversion passes its
// output through unmodified.
type Reducer interface {
	Reduce(hkl types.HKL) (reduced types.HKL, opTag int)
}

// Factory builds a reducer for one block's symmetry group.
type Factory func(sg types.SpaceGroup) Reducer

// ReducerFunc adapts a plain function to the Reducer interface.
type ReducerFunc func(types.HKL) (types.HKL, int)

func (f ReducerFunc) Reduce(hkl types.HKL) (types.HKL, int) {
	return f(hkl)
}

// Identity returns every index unchanged with operator tag 1 (the
// identity operator). It is the default when no symmetry engine is
// plugged in, which is correct only for space group P1.
func Identity() Reducer {
	return ReducerFunc(func(hkl types.HKL) (types.HKL, int) {
		return hkl, 1
	})
}

// IdentityFactory ignores the space group and returns Identity().
func IdentityFactory(types.SpaceGroup) Reducer {
	return Identity()
}
