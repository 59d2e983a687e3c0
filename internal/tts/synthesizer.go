// Package tts renders paragraph text as speech through a text-to-speech
// provider.
//
// A Synthesizer prepares the text, cuts it into chunks within the provider's
// request limit, renders every chunk and joins the audio in order. Providers
// implement ChunkSynthesizer; ElevenLabs and AWS Polly are available.
package tts

import (
	"context"
	"errors"
	"fmt"

	"github.com/book-expert/logger"
	"github.com/dlops-io/mega-pipeline-aws/internal/pipeline"
	"github.com/dlops-io/mega-pipeline-aws/internal/tts/audio"
	"github.com/dlops-io/mega-pipeline-aws/internal/tts/text"
	"github.com/dustin/go-humanize"
)

// Static errors.
var (
	ErrNilProvider = errors.New("speech provider cannot be nil")
	ErrNilLogger   = errors.New("logger cannot be nil")
	ErrEmptyText   = errors.New("text is empty after preparation")
	ErrEmptyAudio  = errors.New("received empty audio data")
)

// ChunkSynthesizer renders one chunk of prepared text.
type ChunkSynthesizer interface {
	SynthesizeChunk(ctx context.Context, text string) ([]byte, error)
}

// Synthesizer turns a paragraph artifact into an audio artifact.
type Synthesizer struct {
	name     string
	provider ChunkSynthesizer
	preparer *text.Preparer
	maxChars int
	format   audio.Format
	logger   *logger.Logger
}

// NewSynthesizer creates a Synthesizer that sends at most maxChars runes of
// text per provider request.
func NewSynthesizer(
	name string,
	provider ChunkSynthesizer,
	maxChars int,
	log *logger.Logger,
) (*Synthesizer, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}

	if log == nil {
		return nil, ErrNilLogger
	}

	return &Synthesizer{
		name:     name,
		provider: provider,
		preparer: text.NewPreparer(),
		maxChars: maxChars,
		format:   audio.FormatMP3,
		logger:   log,
	}, nil
}

// Synthesize renders the paragraph of one item. It satisfies
// pipeline.TransformFunc.
func (s *Synthesizer) Synthesize(ctx context.Context, id string, input []byte) ([]byte, error) {
	operation := s.name + " " + id

	prepared := s.preparer.Prepare(string(input))
	if prepared == "" {
		return nil, pipeline.Wrap(pipeline.ErrPermanentItem, operation, ErrEmptyText)
	}

	chunks := text.SplitForSynthesis(prepared, s.maxChars)
	parts := make([][]byte, 0, len(chunks))

	s.logger.Info("Synthesizing %s with %s in %d chunk(s)", id, s.name, len(chunks))

	for index, chunk := range chunks {
		err := ctx.Err()
		if err != nil {
			return nil, pipeline.Wrap(pipeline.ErrTransientProvider, operation, err)
		}

		part, err := s.provider.SynthesizeChunk(ctx, chunk)
		if err != nil {
			chunkOperation := fmt.Sprintf("%s chunk %d/%d", operation, index+1, len(chunks))
			if pipeline.Classify(err) == nil {
				return nil, pipeline.Wrap(pipeline.ErrTransientProvider, chunkOperation, err)
			}

			return nil, fmt.Errorf("%s: %w", chunkOperation, err)
		}

		parts = append(parts, part)
	}

	joined, err := audio.Join(s.format, parts)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrPermanentItem, operation, err)
	}

	s.logger.Info("Synthesized %s: %s of audio data", id, humanize.Bytes(uint64(len(joined))))

	return joined, nil
}
