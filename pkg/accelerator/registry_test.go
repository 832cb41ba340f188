package accelerator_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nordichpc/sonar/pkg/accelerator"
	"github.com/nordichpc/sonar/pkg/accelerator/fake"
)

func TestAvailableSkipsZeroDeviceAndErroringVariants(t *testing.T) {
	f := accelerator.NewFactory()

	empty := fake.New()
	f.RegisterVariant(func() (accelerator.Accelerator, error) { return empty, nil })

	populated := fake.New()
	populated.SetDevices(
		[]accelerator.CardInfo{{Index: 0, Model: "Fake GPU"}},
		[]accelerator.CardState{{Index: 0}},
		[][]accelerator.Process{{}},
	)
	f.RegisterVariant(func() (accelerator.Accelerator, error) { return populated, nil })

	f.RegisterVariant(func() (accelerator.Accelerator, error) {
		return nil, errors.New("shim load failed")
	})

	available, errs := f.Available()
	assert.Len(t, available, 1)
	assert.Len(t, errs, 1)
	assert.Equal(t, "Fake", available[0].Manufacturer())
}
