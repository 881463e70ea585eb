package bluetooth

// DefaultLocalName is the advertised device name RaceChrono shows in
// its DIY device picker.
const DefaultLocalName = "RaceChrono DIY"

type options struct {
	name string
}

type Option func(*options)

// WithLocalName overrides the advertised device name.
func WithLocalName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}
