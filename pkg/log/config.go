package log

import (
	"fmt"
	stdlog "log"
	"strings"
)

// Config declares a logger: level, format and outputs.
type Config struct {
	Level  string `json:"level"`
	Format string `json:"format"` // text|json
	// Outputs lists "console", "null" or "file:<path>". Defaults to console.
	Outputs []string `json:"outputs,omitempty"`
	// Redact replaces the values of these keys with [REDACTED].
	Redact []string `json:"redact,omitempty"`
	// SampleInitial/SampleThereafter keep the first N identical messages and
	// then every Mth one. Disabled when SampleThereafter is 0.
	SampleInitial    int `json:"sampleInitial,omitempty"`
	SampleThereafter int `json:"sampleThereafter,omitempty"`
}

// ApplyConfig builds a Logger from cfg.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := []LoggerOption{WithLevel(level)}
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		opts = append(opts, WithFormatter(&TextFormatter{}))
	case "json":
		opts = append(opts, WithFormatter(&JSONFormatter{}))
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	for _, o := range cfg.Outputs {
		switch {
		case o == "console":
			opts = append(opts, WithOutput(NewConsoleOutput()))
		case o == "null":
			opts = append(opts, WithOutput(&NullOutput{}))
		case strings.HasPrefix(o, "file:"):
			fo, err := NewFileOutput(strings.TrimPrefix(o, "file:"))
			if err != nil {
				return nil, err
			}
			opts = append(opts, WithOutput(fo))
		default:
			return nil, fmt.Errorf("unknown log output %q", o)
		}
	}
	l := NewLogger(opts...).(*BaseLogger)
	if len(cfg.Redact) > 0 {
		l.redactions = make(map[string]struct{}, len(cfg.Redact))
		for _, k := range cfg.Redact {
			l.redactions[k] = struct{}{}
		}
	}
	if cfg.SampleThereafter > 0 {
		l.sampler = newSampler(cfg.SampleInitial, cfg.SampleThereafter)
	}
	return l, nil
}

// stdWriter adapts Logger to io.Writer for the standard library logger.
type stdWriter struct {
	logger Logger
}

func (w stdWriter) Write(p []byte) (int, error) {
	w.logger.Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// ToStdLogger returns a *log.Logger writing through logger at info level.
func ToStdLogger(logger Logger) *stdlog.Logger {
	return stdlog.New(stdWriter{logger: logger}, "", 0)
}

// RedirectStdLog routes the standard library's default logger (used by
// pebble) through logger.
func RedirectStdLog(logger Logger) {
	stdlog.SetFlags(0)
	stdlog.SetPrefix("")
	stdlog.SetOutput(stdWriter{logger: logger.With(Component("stdlog"))})
}
