package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/dlops-io/mega-pipeline-aws/internal/config"
	"github.com/dlops-io/mega-pipeline-aws/internal/pipeline"
	"github.com/dlops-io/mega-pipeline-aws/internal/tts/audio"
)

// ErrNilPollyAPI is returned when no Polly client is supplied.
var ErrNilPollyAPI = errors.New("polly client cannot be nil")

// PollyAPI is the part of the Polly client the synthesizer uses.
type PollyAPI interface {
	SynthesizeSpeech(
		ctx context.Context,
		params *polly.SynthesizeSpeechInput,
		optFns ...func(*polly.Options),
	) (*polly.SynthesizeSpeechOutput, error)
}

// NewPollyAPI builds a Polly client for region from an AWS config.
func NewPollyAPI(cfg aws.Config, region string) *polly.Client {
	return polly.NewFromConfig(cfg, func(options *polly.Options) {
		if region != "" {
			options.Region = region
		}
	})
}

// PollyClient renders text with AWS Polly.
type PollyClient struct {
	api      PollyAPI
	settings config.PollyConfig
}

// NewPollyClient creates a PollyClient for the configured voice.
func NewPollyClient(api PollyAPI, settings config.PollyConfig) (*PollyClient, error) {
	if api == nil {
		return nil, ErrNilPollyAPI
	}

	_, err := audio.ParseFormat(settings.OutputFormat)
	if err != nil {
		return nil, fmt.Errorf("polly output format: %w", err)
	}

	return &PollyClient{api: api, settings: settings}, nil
}

// SynthesizeChunk sends one chunk of text and returns the audio stream.
func (c *PollyClient) SynthesizeChunk(ctx context.Context, text string) ([]byte, error) {
	const operation = "polly"

	if strings.TrimSpace(text) == "" {
		return nil, pipeline.Wrap(pipeline.ErrPermanentItem, operation, ErrEmptyChunk)
	}

	input := &polly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		OutputFormat: types.OutputFormat(c.settings.OutputFormat),
		VoiceId:      types.VoiceId(c.settings.VoiceID),
	}

	if c.settings.Engine != "" {
		input.Engine = types.Engine(c.settings.Engine)
	}

	output, err := c.api.SynthesizeSpeech(ctx, input)
	if err != nil {
		return nil, classifyAWSError(operation, err)
	}
	defer output.AudioStream.Close()

	audioData, err := io.ReadAll(output.AudioStream)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrTransientProvider, operation,
			fmt.Errorf("failed to read audio stream: %w", err))
	}

	if len(audioData) == 0 {
		return nil, pipeline.Wrap(pipeline.ErrPermanentItem, operation, ErrEmptyAudio)
	}

	return audioData, nil
}

// classifyAWSError maps an AWS SDK error to a marker by its HTTP status.
// Errors without a response are transport failures.
func classifyAWSError(operation string, err error) error {
	var responseErr *awshttp.ResponseError
	if errors.As(err, &responseErr) {
		return pipeline.Wrap(pipeline.StatusMarker(responseErr.HTTPStatusCode()), operation, err)
	}

	return pipeline.Wrap(pipeline.ErrTransientProvider, operation, err)
}
