package spec

import (
	"strings"
	"sync"
)

// defaultTable is the built-in tag mapping. Alternative tags for one label
// (FreeR_flag, I, FOM) are consecutive, as resolution requires.
var defaultTable = []string{
	"index_h H H 0",
	"index_k K H 0",
	"index_l L H 0",
	"pdbx_r_free_flag FreeR_flag I 0",
	"status FreeR_flag s 0", // s is the status pseudo-type
	"intensity_meas I J 1",
	"intensity_net I J 1",
	"intensity_sigma SIGI Q 1",
	"pdbx_I_plus I(+) K 1",
	"pdbx_I_plus_sigma SIGI(+) M 1",
	"pdbx_I_minus I(-) K 1",
	"pdbx_I_minus_sigma SIGI(-) M 1",
	"F_meas_au FP F 1",
	"F_meas_sigma_au SIGFP Q 1",
	"pdbx_F_plus F(+) G 1",
	"pdbx_F_plus_sigma SIGF(+) L 1",
	"pdbx_F_minus F(-) G 1",
	"pdbx_F_minus_sigma SIGF(-) L 1",
	"pdbx_anom_difference DP D 1",
	"pdbx_anom_difference_sigma SIGDP Q 1",
	"F_calc FC F 1",
	"phase_calc PHIC P 1",
	"fom FOM W 1",
	"weight FOM W 1",
	"pdbx_HL_A_iso HLA A 1",
	"pdbx_HL_B_iso HLB A 1",
	"pdbx_HL_C_iso HLC A 1",
	"pdbx_HL_D_iso HLD A 1",
	"pdbx_FWT FWT F 1",
	"pdbx_PHWT PHWT P 1",
	"pdbx_DELFWT DELFWT F 1",
	"pdbx_DELPHWT DELPHWT P 1",
}

var (
	defaultOnce sync.Once
	defaultSpec *Spec
)

// Default returns the built-in conversion spec. The table is parsed once
// per process and the result must not be mutated.
func Default() *Spec {
	defaultOnce.Do(func() {
		s, err := Parse(strings.NewReader(strings.Join(defaultTable, "\n")))
		if err != nil {
			// The table is a compile-time constant; a parse failure is a bug.
			panic("spec: default table is malformed: " + err.Error())
		}
		defaultSpec = s
	})
	return defaultSpec
}
