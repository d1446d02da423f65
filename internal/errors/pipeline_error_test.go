package errors_test

import (
	stderrors "errors"
	"fmt"
	"os"
	"testing"

	"github.com/paveg/noshow/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *errors.PipelineError
		expected string
	}{
		{
			name: "column and line",
			err: &errors.PipelineError{
				Kind:    errors.KindParse,
				Op:      "ReadCSV",
				Column:  "Age",
				Row:     7,
				Message: `invalid int "abc"`,
			},
			expected: `ParseError: ReadCSV failed on column 'Age' (line 7): invalid int "abc"`,
		},
		{
			name: "column only",
			err: &errors.PipelineError{
				Kind:    errors.KindValue,
				Op:      "Dataset",
				Column:  "waiting_days",
				Message: "column does not exist",
			},
			expected: "ValueError: Dataset failed on column 'waiting_days': column does not exist",
		},
		{
			name: "line only",
			err: &errors.PipelineError{
				Kind:    errors.KindParse,
				Op:      "ReadCSV",
				Row:     3,
				Message: "wrong number of fields",
			},
			expected: "ParseError: ReadCSV failed (line 3): wrong number of fields",
		},
		{
			name: "bare",
			err: &errors.PipelineError{
				Kind:    errors.KindValue,
				Op:      "StratifiedSplit",
				Message: "need at least 2 classes",
			},
			expected: "ValueError: StratifiedSplit failed: need at least 2 classes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestPipelineError_IsKind(t *testing.T) {
	err := errors.NewValueError("StratifiedSplit", "need at least 2 classes")
	wrapped := fmt.Errorf("split stage: %w", err)

	assert.ErrorIs(t, wrapped, errors.ErrValue)
	assert.NotErrorIs(t, wrapped, errors.ErrIO)
	assert.NotErrorIs(t, wrapped, errors.ErrParse)

	same := errors.NewValueError("StratifiedSplit", "need at least 2 classes")
	other := errors.NewValueError("StratifiedKFold", "need at least 2 classes")
	assert.True(t, err.Is(same))
	assert.False(t, err.Is(other))
	assert.False(t, err.Is(stderrors.New("different error")))
}

func TestNewIOError(t *testing.T) {
	err := errors.NewIOError("Load", "missing.csv", os.ErrNotExist)

	assert.Equal(t, errors.KindIO, err.Kind)
	assert.Equal(t, "cannot read missing.csv", err.Message)
	require.ErrorIs(t, err, os.ErrNotExist)
	require.ErrorIs(t, err, errors.ErrIO)

	tests := []struct {
		op       string
		expected string
	}{
		{"Load", "cannot read out.csv"},
		{"LoadConfig", "cannot read out.csv"},
		{"Export", "cannot write out.csv"},
		{"WriteReport", "cannot write out.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			assert.Equal(t, tt.expected, errors.NewIOError(tt.op, "out.csv", os.ErrPermission).Message)
		})
	}
}

func TestNewParseError(t *testing.T) {
	cause := stderrors.New("strconv failure")
	err := errors.NewParseError("ReadCSV", "Age", 4, "invalid int", cause)

	assert.Equal(t, errors.KindParse, err.Kind)
	assert.Equal(t, 4, err.Row)
	assert.Equal(t, cause, err.Unwrap())
	assert.ErrorIs(t, err, errors.ErrParse)
}

func TestConstructors(t *testing.T) {
	notFound := errors.NewColumnNotFoundError("Select", "age")
	assert.Equal(t, "column does not exist", notFound.Message)
	assert.ErrorIs(t, notFound, errors.ErrValue)

	validation := errors.NewValidationError("Take", "", "index 9 out of bounds [0, 3)")
	assert.Equal(t, "ValueError: Take failed: index 9 out of bounds [0, 3)", validation.Error())

	cfg := errors.NewConfigError("test_size", "must be in (0, 1)")
	assert.ErrorIs(t, cfg, errors.ErrConfig)
	assert.Equal(t, "ConfigError: config failed on column 'test_size': must be in (0, 1)", cfg.Error())

	cause := stderrors.New("boom")
	internal := errors.NewInternalError("Fit", cause)
	assert.Equal(t, cause, internal.Unwrap())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "IOError", errors.KindIO.String())
	assert.Equal(t, "ParseError", errors.KindParse.String())
	assert.Equal(t, "ValueError", errors.KindValue.String())
	assert.Equal(t, "ConfigError", errors.KindConfig.String())
	assert.Equal(t, "Error", errors.Kind(0).String())
}
