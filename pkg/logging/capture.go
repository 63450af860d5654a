package logging

import "sync"

// CapturedEntry is one log call recorded by a CaptureLogger.
type CapturedEntry struct {
	Level   Level
	Message string
	Fields  map[string]any
}

// CaptureLogger keeps entries in memory. Tests use it to assert on the
// diagnostics a component emitted for skipped input.
type CaptureLogger struct {
	store  *captureStore
	fields []Field
	level  Level
}

type captureStore struct {
	mu      sync.Mutex
	entries []CapturedEntry
}

// NewCaptureLogger records everything at DebugLevel and above.
func NewCaptureLogger() *CaptureLogger {
	return &CaptureLogger{store: &captureStore{}, level: DebugLevel}
}

func (c *CaptureLogger) record(level Level, msg string, fields []Field) {
	if level < c.level {
		return
	}
	m := make(map[string]any, len(c.fields)+len(fields))
	for _, f := range c.fields {
		m[f.Key] = f.Value
	}
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	c.store.mu.Lock()
	c.store.entries = append(c.store.entries, CapturedEntry{Level: level, Message: msg, Fields: m})
	c.store.mu.Unlock()
}

func (c *CaptureLogger) Debug(msg string, fields ...Field) { c.record(DebugLevel, msg, fields) }
func (c *CaptureLogger) Info(msg string, fields ...Field)  { c.record(InfoLevel, msg, fields) }
func (c *CaptureLogger) Warn(msg string, fields ...Field)  { c.record(WarnLevel, msg, fields) }
func (c *CaptureLogger) Error(msg string, fields ...Field) { c.record(ErrorLevel, msg, fields) }

func (c *CaptureLogger) With(fields ...Field) Logger {
	merged := make([]Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &CaptureLogger{store: c.store, fields: merged, level: c.level}
}

func (c *CaptureLogger) SetLevel(level Level) { c.level = level }
func (c *CaptureLogger) GetLevel() Level      { return c.level }

// Entries returns a copy of everything recorded so far.
func (c *CaptureLogger) Entries() []CapturedEntry {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	out := make([]CapturedEntry, len(c.store.entries))
	copy(out, c.store.entries)
	return out
}

// Count returns how many entries were recorded at exactly the given level.
func (c *CaptureLogger) Count(level Level) int {
	n := 0
	for _, e := range c.Entries() {
		if e.Level == level {
			n++
		}
	}
	return n
}
