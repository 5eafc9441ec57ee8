package mqtt

// Options configures a broker listener.
type Options struct {
	URL string
}

type Option func(*Options)

func newOptions(opts ...Option) Options {
	options := Options{
		URL: "mqtt://127.0.0.1:1883",
	}
	for _, o := range opts {
		o(&options)
	}
	return options
}

func URL(url string) Option {
	return func(o *Options) {
		o.URL = url
	}
}
