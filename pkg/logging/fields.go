package logging

import (
	"time"
)

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Domain field helpers. Keys are shared across packages so log lines from
// different stages can be joined on them.

func Component(name string) Field {
	return String("component", name)
}

func Stage(name string) Field {
	return String("stage", name)
}

func RunID(id string) Field {
	return String("run_id", id)
}

func Pattern(name string) Field {
	return String("pattern", name)
}

func QNumber(n int) Field {
	return Int("q_number", n)
}

func Label(label string) Field {
	return String("label", label)
}

func Template(t string) Field {
	return String("template", t)
}

func Query(q string) Field {
	return String("query", q)
}

// Line is a 1-based line (or block) number inside an input artifact.
func Line(n int) Field {
	return Int("line", n)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}

func Path(p string) Field {
	return String("path", p)
}
