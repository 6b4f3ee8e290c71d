package metric

import "fmt"

// Key identifies a tracked metric.
type Key string

// Scope is an authorization unit the provider requires before data can be read.
type Scope string

// Shape defines how provider samples map onto a metric value.
type Shape string

const (
	ShapeScalar      Shape = "scalar"
	ShapePaired      Shape = "paired"
	ShapeCategorical Shape = "categorical"
)

// Descriptor holds the static definition of a tracked metric.
type Descriptor struct {
	Key         Key
	Label       string
	Identifiers []string
	Scopes      []Scope
	Shape       Shape
	Unit        string
	Description string

	PrometheusName string
	OTELName       string

	// Poll arms a fixed-interval fallback poll in addition to the push subscription.
	Poll bool

	// Categories names categorical codes, indexed by code.
	Categories []string

	// Components names the two legs of a paired metric.
	Components []string
}

// Identifier returns the primary provider identifier.
func (d Descriptor) Identifier() string {
	return d.Identifiers[0]
}

// CategoryTag returns the display tag for a categorical code.
func (d Descriptor) CategoryTag(code int) string {
	if code >= 0 && code < len(d.Categories) {
		return d.Categories[code]
	}
	return fmt.Sprintf("%d", code)
}

// validate checks structural invariants of a descriptor.
func (d Descriptor) validate() error {
	if d.Key == "" {
		return fmt.Errorf("metric key cannot be empty")
	}
	if len(d.Scopes) == 0 {
		return fmt.Errorf("metric %q: at least one scope required", d.Key)
	}

	want := 1
	switch d.Shape {
	case ShapeScalar, ShapeCategorical:
	case ShapePaired:
		want = 2
	default:
		return fmt.Errorf("metric %q: unknown shape %q", d.Key, d.Shape)
	}
	if len(d.Identifiers) != want {
		return fmt.Errorf("metric %q: %s shape needs %d identifier(s), got %d",
			d.Key, d.Shape, want, len(d.Identifiers))
	}
	if len(d.Components) > 0 && len(d.Components) != want {
		return fmt.Errorf("metric %q: %d component name(s) for %d identifier(s)",
			d.Key, len(d.Components), want)
	}
	return nil
}
