// Package sample defines normalized metric values produced from provider samples.
package sample

import (
	"strconv"
	"time"

	"github.com/neox5/vitalsync/internal/metric"
)

// Value is a shape-tagged metric value. The zero Value is not valid.
type Value struct {
	Shape  metric.Shape
	First  float64
	Second float64
	Code   int
	Tag    string
}

// Scalar creates a single-quantity value.
func Scalar(v float64) Value {
	return Value{Shape: metric.ShapeScalar, First: v}
}

// Paired creates a two-quantity value such as systolic/diastolic.
func Paired(a, b float64) Value {
	return Value{Shape: metric.ShapePaired, First: a, Second: b}
}

// Categorical creates an enum value with its display tag.
func Categorical(code int, tag string) Value {
	return Value{Shape: metric.ShapeCategorical, Code: code, Tag: tag}
}

// String formats the value the way the display renders it.
func (v Value) String() string {
	switch v.Shape {
	case metric.ShapeScalar:
		return formatQuantity(v.First)
	case metric.ShapePaired:
		return formatQuantity(v.First) + "/" + formatQuantity(v.Second)
	case metric.ShapeCategorical:
		return v.Tag
	default:
		return ""
	}
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

// Sample is one normalized observation. Samples are never modified after
// creation; a newer sample supersedes an older one.
type Sample struct {
	Metric     metric.Key
	Value      Value
	ObservedAt time.Time
}

// New creates a sample.
func New(key metric.Key, value Value, observedAt time.Time) *Sample {
	return &Sample{Metric: key, Value: value, ObservedAt: observedAt}
}
