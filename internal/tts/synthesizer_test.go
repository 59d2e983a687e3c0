package tts_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/book-expert/logger"
	"github.com/dlops-io/mega-pipeline-aws/internal/pipeline"
	"github.com/dlops-io/mega-pipeline-aws/internal/tts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProvider struct {
	mu     sync.Mutex
	chunks []string
	failAt int
	err    error
}

func (p *recordingProvider) SynthesizeChunk(_ context.Context, text string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.chunks = append(p.chunks, text)

	if p.err != nil && len(p.chunks) == p.failAt {
		return nil, p.err
	}

	return []byte{0xFF, 0xFB, byte(len(p.chunks))}, nil
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "tts-test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = log.Close() })

	return log
}

func TestSynthesizer_SingleChunk(t *testing.T) {
	t.Parallel()

	provider := &recordingProvider{}

	synthesizer, err := tts.NewSynthesizer("polly", provider, 3000, newTestLogger(t))
	require.NoError(t, err)

	output, err := synthesizer.Synthesize(context.Background(), "abc", []byte("## Intro\n\n**Brie** is soft"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Intro. Brie is soft."}, provider.chunks)
	assert.Equal(t, []byte{0xFF, 0xFB, 1}, output)
}

func TestSynthesizer_ChunksJoinedInOrder(t *testing.T) {
	t.Parallel()

	provider := &recordingProvider{}
	paragraph := strings.Repeat("Aged cheddar gets sharper with time. ", 10)

	synthesizer, err := tts.NewSynthesizer("elevenlabs", provider, 80, newTestLogger(t))
	require.NoError(t, err)

	output, err := synthesizer.Synthesize(context.Background(), "abc", []byte(paragraph))
	require.NoError(t, err)

	require.Greater(t, len(provider.chunks), 1)

	for _, chunk := range provider.chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 80)
	}

	var expected []byte
	for index := range provider.chunks {
		expected = append(expected, 0xFF, 0xFB, byte(index+1))
	}

	assert.Equal(t, expected, output)
}

func TestSynthesizer_EmptyText(t *testing.T) {
	t.Parallel()

	provider := &recordingProvider{}

	synthesizer, err := tts.NewSynthesizer("polly", provider, 3000, newTestLogger(t))
	require.NoError(t, err)

	_, err = synthesizer.Synthesize(context.Background(), "abc", []byte("  \n**  **\n"))
	require.ErrorIs(t, err, pipeline.ErrPermanentItem)
	require.ErrorIs(t, err, tts.ErrEmptyText)
	assert.Empty(t, provider.chunks)
}

func TestSynthesizer_ProviderFailure(t *testing.T) {
	t.Parallel()

	paragraph := strings.Repeat("Gouda melts well. ", 20)

	classified := &recordingProvider{
		failAt: 2,
		err:    pipeline.Wrap(pipeline.ErrPermanentItem, "polly", errors.New("invalid ssml")),
	}

	synthesizer, err := tts.NewSynthesizer("polly", classified, 60, newTestLogger(t))
	require.NoError(t, err)

	_, err = synthesizer.Synthesize(context.Background(), "abc", []byte(paragraph))
	require.ErrorIs(t, err, pipeline.ErrPermanentItem)
	assert.Contains(t, err.Error(), "chunk 2/")
	assert.Len(t, classified.chunks, 2)

	unclassified := &recordingProvider{failAt: 1, err: errors.New("socket closed")}

	synthesizer, err = tts.NewSynthesizer("polly", unclassified, 60, newTestLogger(t))
	require.NoError(t, err)

	_, err = synthesizer.Synthesize(context.Background(), "abc", []byte(paragraph))
	require.ErrorIs(t, err, pipeline.ErrTransientProvider)
}

func TestSynthesizer_CanceledContext(t *testing.T) {
	t.Parallel()

	provider := &recordingProvider{}

	synthesizer, err := tts.NewSynthesizer("polly", provider, 3000, newTestLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = synthesizer.Synthesize(ctx, "abc", []byte("Some text."))
	require.ErrorIs(t, err, pipeline.ErrTransientProvider)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, provider.chunks)
}

func TestNewSynthesizer_Validation(t *testing.T) {
	t.Parallel()

	_, err := tts.NewSynthesizer("polly", nil, 3000, newTestLogger(t))
	require.ErrorIs(t, err, tts.ErrNilProvider)

	_, err = tts.NewSynthesizer("polly", &recordingProvider{}, 3000, nil)
	require.ErrorIs(t, err, tts.ErrNilLogger)
}
