//go:build cgo && xpu

package accelerator

import "github.com/nordichpc/sonar/pkg/accelerator/xpu"

func init() {
	registerVendor(func() (Accelerator, error) { return xpu.New() })
}
