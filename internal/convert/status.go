package convert

import (
	"math"

	"github.com/reflbase/reflbase/internal/table"
)

// StatusFlag encodes a textual free-flag token as a numeric flag:
// leading 'o' (working set) -> 1, leading 'f' (held-out set) -> 0,
// anything else -> NaN. One layer of surrounding quotes is stripped
// first. The function is total; unknown tokens are not diagnosed.
func StatusFlag(tok string) float32 {
	t := table.StripQuotes(tok)
	if t == "" {
		return float32(math.NaN())
	}
	switch t[0] {
	case 'o':
		return 1
	case 'f':
		return 0
	}
	return float32(math.NaN())
}
