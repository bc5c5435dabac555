package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-batch-pipeline/internal/model"
	"go-batch-pipeline/internal/pipeline"
)

func TestValidator(t *testing.T) {
	v, err := pipeline.NewValidator([]string{"id", "value"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		rec     model.TransformedRecord
		want    bool
		missing []string
	}{
		{"all present", model.TransformedRecord{"id": model.Int(1), "value": model.Int(2)}, true, nil},
		{"extra fields", model.TransformedRecord{"id": model.Int(1), "value": model.Int(2), "x": model.Text("")}, true, nil},
		{"falsy values count", model.TransformedRecord{"id": model.Int(0), "value": model.Other(nil)}, true, nil},
		{"empty string counts", model.TransformedRecord{"id": model.Text(""), "value": model.Other(false)}, true, nil},
		{"missing one", model.TransformedRecord{"id": model.Int(1)}, false, []string{"value"}},
		{"missing all", model.TransformedRecord{}, false, []string{"id", "value"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Validate(tt.rec))
			assert.Equal(t, tt.missing, v.Missing(tt.rec))
		})
	}
}

func TestValidatorNoRequiredFields(t *testing.T) {
	v, err := pipeline.NewValidator(nil)
	require.NoError(t, err)
	assert.True(t, v.Validate(model.TransformedRecord{}))
	assert.Empty(t, v.Required())
}

func TestNewValidatorRejectsBadFields(t *testing.T) {
	for name, fields := range map[string][]string{
		"empty":     {"id", ""},
		"blank":     {"  "},
		"duplicate": {"id", "value", "id"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := pipeline.NewValidator(fields)
			assert.ErrorIs(t, err, pipeline.ErrInvalidRequiredFields)
		})
	}
}
