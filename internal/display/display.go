// Package display renders store entries for people.
package display

import (
	"fmt"
	"io"
	"time"

	"github.com/neox5/vitalsync/internal/metric"
	"github.com/neox5/vitalsync/internal/state"
)

// Text returns the display text of an entry's value or status.
func Text(e state.Entry) string {
	switch e.Status {
	case state.StatusLoading:
		return "Loading..."
	case state.StatusReady:
		if e.Sample == nil {
			return "No Data"
		}
		return e.Sample.Value.String()
	case state.StatusNoData:
		return "No Data"
	case state.StatusUnauthorized:
		return "Not Authorized"
	case state.StatusUnavailable:
		return "Unavailable"
	case state.StatusError:
		return "Error"
	default:
		return e.Status.String()
	}
}

// View is the JSON shape of one metric on the status endpoint.
type View struct {
	Metric     metric.Key   `json:"metric"`
	Label      string       `json:"label"`
	Status     state.Status `json:"status"`
	Text       string       `json:"text"`
	Unit       string       `json:"unit,omitempty"`
	ObservedAt *time.Time   `json:"observed_at,omitempty"`
	UpdatedAt  *time.Time   `json:"updated_at,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// NewView builds the view of e using d for labels and units.
func NewView(d metric.Descriptor, e state.Entry) View {
	v := View{
		Metric: d.Key,
		Label:  d.Label,
		Status: e.Status,
		Text:   Text(e),
		Unit:   d.Unit,
	}
	if e.Sample != nil {
		observed := e.Sample.ObservedAt
		v.ObservedAt = &observed
	}
	if e.Version > 0 {
		updated := e.UpdatedAt
		v.UpdatedAt = &updated
	}
	if e.Err != nil {
		v.Error = e.Err.Error()
	}
	return v
}

// Views returns a view for every registered metric in registry order.
func Views(registry *metric.Registry, store *state.Store) []View {
	views := make([]View, 0, len(registry.Keys()))
	for _, d := range registry.Metrics() {
		views = append(views, NewView(d, store.Read(d.Key)))
	}
	return views
}

// Render writes one "Label: text" line per metric.
func Render(w io.Writer, registry *metric.Registry, store *state.Store) error {
	for _, v := range Views(registry, store) {
		if _, err := fmt.Fprintf(w, "%s: %s\n", v.Label, v.Text); err != nil {
			return err
		}
	}
	return nil
}
