package pipeline_test

import (
	"errors"
	"testing"

	"github.com/dlops-io/mega-pipeline-aws/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("429 too many requests")

	err := pipeline.Wrap(pipeline.ErrTransientProvider, "generate abc", cause)
	require.ErrorIs(t, err, pipeline.ErrTransientProvider)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, "transient provider error: generate abc: 429 too many requests", err.Error())

	err = pipeline.Wrap(nil, " ", nil)
	require.ErrorIs(t, err, pipeline.ErrTransientProvider)
	assert.Equal(t, "transient provider error: pipeline", err.Error())
}

func TestClassifyAndIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		marker    error
		retryable bool
	}{
		{name: "nil", err: nil, marker: nil, retryable: false},
		{name: "plain", err: errors.New("boom"), marker: nil, retryable: false},
		{
			name:      "transient",
			err:       pipeline.Wrap(pipeline.ErrTransientProvider, "tts", nil),
			marker:    pipeline.ErrTransientProvider,
			retryable: true,
		},
		{
			name:      "permanent",
			err:       pipeline.Wrap(pipeline.ErrPermanentItem, "tts", nil),
			marker:    pipeline.ErrPermanentItem,
			retryable: false,
		},
		{
			name:      "storage",
			err:       pipeline.Wrap(pipeline.ErrStorage, "write", nil),
			marker:    pipeline.ErrStorage,
			retryable: true,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.marker, pipeline.Classify(testCase.err))
			assert.Equal(t, testCase.retryable, pipeline.IsRetryable(testCase.err))
		})
	}
}

func TestStatusMarker(t *testing.T) {
	t.Parallel()

	for status, marker := range map[int]error{
		408: pipeline.ErrTransientProvider,
		429: pipeline.ErrTransientProvider,
		500: pipeline.ErrTransientProvider,
		503: pipeline.ErrTransientProvider,
		400: pipeline.ErrPermanentItem,
		401: pipeline.ErrPermanentItem,
		404: pipeline.ErrPermanentItem,
		422: pipeline.ErrPermanentItem,
	} {
		assert.Equal(t, marker, pipeline.StatusMarker(status), status)
	}
}
