package accelerator

// registered accumulates the vendor constructors contributed by whichever
// cgo build tags (nvidia, amd, habana, xpu) this binary was compiled with;
// each vendor's wire_<name>.go file appends to it from an init().
var registered []func() (Accelerator, error)

func registerVendor(construct func() (Accelerator, error)) {
	registered = append(registered, construct)
}

// DefaultFactory returns a Factory preloaded with every vendor variant this
// binary was compiled with, in registration order. The fake "no accelerator
// present" variant is deliberately NOT included here: callers that want it
// as a fallback add it explicitly via RegisterVariant, since production
// daemons care whether zero real accelerators were found.
func DefaultFactory() *Factory {
	f := NewFactory()
	for _, construct := range registered {
		f.RegisterVariant(construct)
	}
	return f
}

// Factory materializes the ordered list of compiled-in accelerator variants
// once at daemon startup. NewFactory starts empty; DefaultFactory preloads the
// vendor constructors that the wire_*.go files register through
// registerVendor from init() when built with their vendor tags. The fake
// variant is not included; a caller adds it with RegisterVariant.
type Factory struct {
	constructors []func() (Accelerator, error)
}

// NewFactory returns an empty Factory; call RegisterVariant to add the
// compiled-in constructors, or use DefaultFactory for the variants this
// build was compiled with.
func NewFactory() *Factory {
	return &Factory{}
}

// RegisterVariant adds a variant constructor to the factory, in the order
// the sysinfo producer should poll it.
func (f *Factory) RegisterVariant(construct func() (Accelerator, error)) {
	f.constructors = append(f.constructors, construct)
}

// Available constructs every registered variant and returns only those that
// report at least one device, matching spec §4.3: "keeping those that
// report device_count > 0". A variant whose constructor or DeviceCount call
// fails is skipped, not fatal — the sysinfo producer still runs the others.
func (f *Factory) Available() ([]Accelerator, []error) {
	var available []Accelerator
	var errs []error

	for _, construct := range f.constructors {
		a, err := construct()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		n, err := a.DeviceCount()
		if err != nil {
			errs = append(errs, err)
			_ = a.Close()
			continue
		}
		if n == 0 {
			_ = a.Close()
			continue
		}
		available = append(available, a)
	}
	return available, errs
}
