//go:build cgo && nvidia

package accelerator

import "github.com/nordichpc/sonar/pkg/accelerator/nvidia"

func init() {
	registerVendor(func() (Accelerator, error) { return nvidia.New() })
}
