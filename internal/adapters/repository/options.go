package repository

// Option applies a configuration option to a store.
type Option func(*settings)

type settings struct {
	codec *IDCodec
}

// WithIDCodec sets the codec used to expose row numbers as opaque ids.
func WithIDCodec(c *IDCodec) Option {
	return func(s *settings) {
		if c != nil {
			s.codec = c
		}
	}
}

func applyOptions(opts []Option) (settings, error) {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if s.codec == nil {
		c, err := NewIDCodec("", 0)
		if err != nil {
			return s, err
		}
		s.codec = c
	}
	return s, nil
}
