package resultshape

// Options configures compilation, execution and plan caching.
type Options struct {
	// StrictNulls makes null or absent values a shape mismatch wherever the
	// plan expects a record or a list. When false they are treated as absent:
	// descending yields null and iterating yields no elements. (default: false)
	StrictNulls bool

	// CacheSize bounds the number of plans a PlanCache keeps (default: 1024).
	CacheSize int

	// Logging configuration
	LogLevel       string // "error", "warn", "info", "debug" (default: "warn")
	Logger         Logger // overrides LogLevel when set
	LogMaxChildren int    // max children/keys shown in summaries (default: 5)
}

// DefaultOptions returns the default configuration.
func DefaultOptions() Options {
	return Options{
		StrictNulls:    false,
		CacheSize:      1024,
		LogLevel:       "warn",
		LogMaxChildren: 5,
	}
}

func (o Options) logger() Logger {
	if o.Logger != nil {
		return o.Logger
	}
	if o.LogLevel == "" {
		return NopLogger()
	}
	return NewLogger(ParseLogLevel(o.LogLevel), nil)
}

func (o Options) maxChildren() int {
	if o.LogMaxChildren <= 0 {
		return 5
	}
	return o.LogMaxChildren
}

func optionsOrDefault(opts []Options) Options {
	if len(opts) > 0 {
		return opts[0]
	}
	return DefaultOptions()
}
