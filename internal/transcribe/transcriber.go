// Package transcribe turns input audio recordings into prompt text with an
// OpenAI speech-to-text model.
package transcribe

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/book-expert/logger"
	"github.com/dlops-io/mega-pipeline-aws/internal/config"
	"github.com/dlops-io/mega-pipeline-aws/internal/core"
	"github.com/dlops-io/mega-pipeline-aws/internal/llm"
	"github.com/dlops-io/mega-pipeline-aws/internal/pipeline"
	"github.com/dustin/go-humanize"
	openai "github.com/sashabaranov/go-openai"
)

// Static errors.
var (
	ErrNilClient       = errors.New("transcription client cannot be nil")
	ErrNilLogger       = errors.New("logger cannot be nil")
	ErrEmptyAudio      = errors.New("audio input is empty")
	ErrEmptyTranscript = errors.New("transcript is empty")
)

// AudioClient is the part of the OpenAI client the transcriber uses.
type AudioClient interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// Transcriber converts audio bytes to text.
type Transcriber struct {
	client   AudioClient
	settings config.TranscribeConfig
	logger   *logger.Logger
}

// NewTranscriber creates a Transcriber over client.
func NewTranscriber(
	client AudioClient,
	settings config.TranscribeConfig,
	log *logger.Logger,
) (*Transcriber, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	if log == nil {
		return nil, ErrNilLogger
	}

	return &Transcriber{client: client, settings: settings, logger: log}, nil
}

// Transcribe uploads the audio of one item and returns its transcript. It
// satisfies pipeline.TransformFunc.
func (t *Transcriber) Transcribe(ctx context.Context, id string, input []byte) ([]byte, error) {
	operation := "transcribe " + id

	if len(input) == 0 {
		return nil, pipeline.Wrap(pipeline.ErrPermanentItem, operation, ErrEmptyAudio)
	}

	t.logger.Info("Transcribing %s (%s) with %s", id, humanize.Bytes(uint64(len(input))), t.settings.Model)

	// The file name only tells the API the container format.
	request := openai.AudioRequest{
		Model:    t.settings.Model,
		FilePath: core.KindInputAudio.Filename(id),
		Reader:   bytes.NewReader(input),
		Language: t.settings.Language,
		Format:   openai.AudioResponseFormatJSON,
	}

	response, err := t.client.CreateTranscription(ctx, request)
	if err != nil {
		return nil, llm.ClassifyError(operation, err)
	}

	transcript := strings.TrimSpace(response.Text)
	if transcript == "" {
		return nil, pipeline.Wrap(pipeline.ErrPermanentItem, operation, ErrEmptyTranscript)
	}

	return []byte(transcript), nil
}
