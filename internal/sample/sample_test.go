package sample

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueString(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"scalar integer", Scalar(5234), "5234"},
		{"scalar fraction", Scalar(36.6), "36.6"},
		{"paired", Paired(120, 80), "120/80"},
		{"categorical", Categorical(3, "asleepCore"), "asleepCore"},
		{"zero", Value{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.value.String())
		})
	}
}
