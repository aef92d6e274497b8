package log

import (
	"context"
	"log/slog"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// levelVar is shared by a logger and everything cloned from it, so SetLevel
// on any of them applies to all.
type levelVar struct{ v atomic.Int32 }

func newLevelVar(l Level) *levelVar {
	lv := &levelVar{}
	lv.set(l)
	return lv
}

func (lv *levelVar) get() Level  { return Level(lv.v.Load()) }
func (lv *levelVar) set(l Level) { lv.v.Store(int32(l)) }

// bridgeHandler feeds slog records into a BaseLogger's formatter and outputs.
type bridgeHandler struct {
	logger *BaseLogger
	attrs  []slog.Attr
}

func newBridgeHandler(logger *BaseLogger) *bridgeHandler {
	return &bridgeHandler{logger: logger}
}

func (h *bridgeHandler) Enabled(_ context.Context, level slog.Level) bool {
	return fromSlogLevel(level) >= h.logger.level.get()
}

func (h *bridgeHandler) Handle(_ context.Context, r slog.Record) error {
	l := h.logger
	if l.sampler != nil && !l.sampler.allow(r.Level, r.Message) {
		return nil
	}
	fields := make(Fields, len(h.attrs)+r.NumAttrs())
	put := func(a slog.Attr) bool {
		if _, ok := l.redactions[a.Key]; ok {
			fields[a.Key] = "[REDACTED]"
		} else {
			fields[a.Key] = a.Value.Any()
		}
		return true
	}
	for _, a := range h.attrs {
		put(a)
	}
	r.Attrs(put)

	entry := &Entry{
		Level:     fromSlogLevel(r.Level),
		Message:   r.Message,
		Fields:    fields,
		Timestamp: r.Time,
		Caller:    callerOf(r.PC),
	}
	formatted, err := l.formatter.Format(entry)
	if err != nil {
		return err
	}
	for _, out := range l.outputs {
		_ = out.Write(entry, formatted)
	}
	return nil
}

func (h *bridgeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return &bridgeHandler{logger: h.logger, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
}

// WithGroup is accepted but groups are flattened.
func (h *bridgeHandler) WithGroup(string) slog.Handler { return h }

// callerOf resolves a record PC; records logged through BaseLogger carry none,
// so the call site is found by skipping the logger frames.
func callerOf(pc uintptr) string {
	if pc == 0 {
		_, file, line, ok := runtime.Caller(6)
		if !ok {
			return ""
		}
		return file + ":" + strconv.Itoa(line)
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return ""
	}
	file, line := fn.FileLine(pc)
	return file + ":" + strconv.Itoa(line)
}

// sampler keeps the first `initial` copies of a message at a level, then one
// in every `thereafter`.
type sampler struct {
	mu         sync.Mutex
	initial    uint64
	thereafter uint64
	seen       map[string]uint64
}

func newSampler(initial, thereafter int) *sampler {
	s := &sampler{thereafter: 1, seen: make(map[string]uint64)}
	if initial > 0 {
		s.initial = uint64(initial)
	}
	if thereafter > 0 {
		s.thereafter = uint64(thereafter)
	}
	return s
}

func (s *sampler) allow(level slog.Level, message string) bool {
	key := level.String() + "|" + message
	s.mu.Lock()
	n := s.seen[key]
	s.seen[key] = n + 1
	s.mu.Unlock()
	return n < s.initial || (n-s.initial)%s.thereafter == 0
}

func toSlogLevel(level Level) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel, FatalLevel:
		return slog.LevelError
	}
	return slog.LevelInfo
}

func fromSlogLevel(level slog.Level) Level {
	switch {
	case level < slog.LevelInfo:
		return DebugLevel
	case level < slog.LevelWarn:
		return InfoLevel
	case level < slog.LevelError:
		return WarnLevel
	}
	return ErrorLevel
}

func attrsFromMap(m Fields) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(m))
	for k, v := range m {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

func attrsFromFieldSlice(fields []Field) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(fields))
	for _, f := range fields {
		attrs = append(attrs, slog.Any(f.Key, f.Value))
	}
	return attrs
}

// argsToAttrs pairs up key/value args. A non-string key or a trailing value
// is kept under "argN".
func argsToAttrs(args []interface{}) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(args)/2+1)
	for i := 0; i < len(args); i += 2 {
		if i+1 == len(args) {
			attrs = append(attrs, slog.Any("arg"+strconv.Itoa(i), args[i]))
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = "arg" + strconv.Itoa(i)
		}
		attrs = append(attrs, slog.Any(key, args[i+1]))
	}
	return attrs
}

func attrsToAny(attrs []slog.Attr) []any {
	out := make([]any, len(attrs))
	for i, a := range attrs {
		out[i] = a
	}
	return out
}
