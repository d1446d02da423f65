package validation_test

import (
	"testing"

	"github.com/paveg/noshow/internal/errors"
	"github.com/paveg/noshow/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockColumnProvider implements ColumnProvider for testing.
type MockColumnProvider struct {
	columns []string
	length  int
}

func (m *MockColumnProvider) HasColumn(name string) bool {
	for _, col := range m.columns {
		if col == name {
			return true
		}
	}
	return false
}

func (m *MockColumnProvider) Columns() []string { return m.columns }

func (m *MockColumnProvider) Len() int { return m.length }

func (m *MockColumnProvider) Width() int { return len(m.columns) }

func TestColumnValidator(t *testing.T) {
	table := &MockColumnProvider{columns: []string{"age", "gender"}, length: 3}

	t.Run("present columns", func(t *testing.T) {
		require.NoError(t, validation.ValidateColumns(table, "Dataset", "age", "gender"))
	})

	t.Run("missing column", func(t *testing.T) {
		err := validation.ValidateColumns(table, "Dataset", "age", "waiting_days")
		require.Error(t, err)

		var pipelineErr *errors.PipelineError
		require.ErrorAs(t, err, &pipelineErr)
		assert.Equal(t, "Dataset", pipelineErr.Op)
		assert.Equal(t, "waiting_days", pipelineErr.Column)
		assert.ErrorIs(t, err, errors.ErrValue)
	})
}

func TestLengthValidator(t *testing.T) {
	require.NoError(t, validation.ValidateLength(3, 3, "Evaluate", "labels"))

	err := validation.ValidateLength(3, 2, "Evaluate", "labels")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "labels: expected length 3, got 2")
}

func TestIndexValidator(t *testing.T) {
	tests := []struct {
		name    string
		index   int
		max     int
		wantErr bool
	}{
		{name: "first", index: 0, max: 5},
		{name: "last", index: 4, max: 5},
		{name: "negative", index: -1, max: 5, wantErr: true},
		{name: "past end", index: 5, max: 5, wantErr: true},
		{name: "empty", index: 0, max: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.ValidateIndex(tt.index, tt.max, "SamplePrediction")
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "out of bounds")
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCompoundValidator(t *testing.T) {
	table := &MockColumnProvider{columns: []string{"age"}, length: 0}

	err := validation.NewCompoundValidator(
		validation.NewColumnValidator(table, "Split", "age"),
		validation.NewMinRowsValidator(table.Len(), 1, "Split"),
		validation.NewColumnValidator(table, "Split", "never-reached"),
	).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "need at least 1 rows, got 0")

	require.Error(t, validation.ValidateNotEmpty(0, "Split"))
	require.NoError(t, validation.ValidateNotEmpty(1, "Split"))
}
