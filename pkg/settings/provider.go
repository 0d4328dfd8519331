package settings

import "context"

// Provider returns the current options. Implementations may read a remote
// store on every call so admin changes apply without a restart.
type Provider interface {
	Options(ctx context.Context) (Options, error)
}

// Static serves a fixed set of options.
type Static Options

// NewStatic returns a provider that always returns o.
func NewStatic(o Options) Static {
	return Static(o)
}

func (s Static) Options(context.Context) (Options, error) {
	return Options(s), nil
}
