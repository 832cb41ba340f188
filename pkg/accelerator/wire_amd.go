//go:build cgo && amd

package accelerator

import "github.com/nordichpc/sonar/pkg/accelerator/amd"

func init() {
	registerVendor(func() (Accelerator, error) { return amd.New() })
}
