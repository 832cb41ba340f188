//go:build cgo && habana

package accelerator

import "github.com/nordichpc/sonar/pkg/accelerator/habana"

func init() {
	registerVendor(func() (Accelerator, error) { return habana.New() })
}
