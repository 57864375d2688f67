//go:build cgo

package kernel

import (
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/netlib/blas/netlib"
)

func init() {
	blas32.Use(netlib.Implementation{})
	vendorBLAS = true
	log.Debug().Msg("⚡ CGO/BLAS Acceleration Enabled (netlib)")
}
