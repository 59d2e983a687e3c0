// Package stages defines the four pipeline stages and how each one builds
// its provider client.
//
// Provider clients are built only when a stage actually processes items, so
// download and upload work without any provider credentials.
package stages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/book-expert/logger"
	"github.com/dlops-io/mega-pipeline-aws/internal/config"
	"github.com/dlops-io/mega-pipeline-aws/internal/core"
	"github.com/dlops-io/mega-pipeline-aws/internal/credentials"
	"github.com/dlops-io/mega-pipeline-aws/internal/llm"
	"github.com/dlops-io/mega-pipeline-aws/internal/pipeline"
	"github.com/dlops-io/mega-pipeline-aws/internal/transcribe"
	"github.com/dlops-io/mega-pipeline-aws/internal/tts"
)

// Stage names.
const (
	NameTranscribe   = "transcribe"
	NameGenerate     = "generate"
	NameSynthesize   = "synthesize"
	NameSynthesizePP = "synthesize-pp"
)

// ErrUnknownStage is returned by Lookup for a name outside the catalogue.
var ErrUnknownStage = errors.New("unknown stage")

// TransformFactory builds the transform of a stage, with its provider client.
type TransformFactory func(
	ctx context.Context,
	cfg *config.Config,
	log *logger.Logger,
) (pipeline.TransformFunc, error)

// Definition describes one stage of the pipeline.
type Definition struct {
	Name            string
	Description     string
	Input           core.Kind
	Output          core.Kind
	ProcessVerb     string
	ClearOnDownload bool
	NewTransform    TransformFactory
}

// Stage returns the runner stage for transform.
func (d Definition) Stage(transform pipeline.TransformFunc) pipeline.Stage {
	return pipeline.Stage{
		Name:       d.Name,
		InputKind:  d.Input,
		OutputKind: d.Output,
		Transform:  transform,
	}
}

// Catalogue returns the stage definitions in pipeline order.
func Catalogue() []Definition {
	return []Definition{
		{
			Name:            NameTranscribe,
			Description:     "speech to prompt text (OpenAI Whisper)",
			Input:           core.KindInputAudio,
			Output:          core.KindPromptText,
			ProcessVerb:     "transcribe",
			ClearOnDownload: true,
			NewTransform:    newTranscribeTransform,
		},
		{
			Name:            NameGenerate,
			Description:     "prompt text to podcast paragraph (OpenAI chat)",
			Input:           core.KindPromptText,
			Output:          core.KindParagraphText,
			ProcessVerb:     "generate",
			ClearOnDownload: true,
			NewTransform:    newGenerateTransform,
		},
		{
			Name:            NameSynthesize,
			Description:     "paragraph text to speech (AWS Polly)",
			Input:           core.KindParagraphText,
			Output:          core.KindSynthesizedAudio,
			ProcessVerb:     "synthesis",
			ClearOnDownload: true,
			NewTransform:    newPollyTransform,
		},
		{
			Name:            NameSynthesizePP,
			Description:     "translated text to speech (ElevenLabs)",
			Input:           core.KindTranslatedText,
			Output:          core.KindDubbedAudio,
			ProcessVerb:     "synthesis",
			ClearOnDownload: true,
			NewTransform:    newElevenLabsTransform,
		},
	}
}

// Lookup finds the definition called name.
func Lookup(definitions []Definition, name string) (Definition, error) {
	for _, definition := range definitions {
		if definition.Name == name {
			return definition, nil
		}
	}

	names := make([]string, 0, len(definitions))
	for _, definition := range definitions {
		names = append(names, definition.Name)
	}

	return Definition{}, fmt.Errorf("%w %q: want one of %s", ErrUnknownStage, name, strings.Join(names, ", "))
}

func newTranscribeTransform(
	_ context.Context,
	cfg *config.Config,
	log *logger.Logger,
) (pipeline.TransformFunc, error) {
	apiKey, err := credentials.LoadOpenAIKey(cfg.Credentials.OpenAIKeyFile)
	if err != nil {
		return nil, err
	}

	client := llm.NewOpenAIClient(apiKey, cfg.Transcribe.BaseURL, seconds(cfg.Transcribe.TimeoutSeconds))

	transcriber, err := transcribe.NewTranscriber(client, cfg.Transcribe, log)
	if err != nil {
		return nil, err
	}

	return transcriber.Transcribe, nil
}

func newGenerateTransform(
	_ context.Context,
	cfg *config.Config,
	log *logger.Logger,
) (pipeline.TransformFunc, error) {
	apiKey, err := credentials.LoadOpenAIKey(cfg.Credentials.OpenAIKeyFile)
	if err != nil {
		return nil, err
	}

	client := llm.NewOpenAIClient(apiKey, cfg.LLM.BaseURL, seconds(cfg.LLM.TimeoutSeconds))

	generator, err := llm.NewGenerator(client, cfg.LLM, log)
	if err != nil {
		return nil, err
	}

	return generator.Generate, nil
}

func newPollyTransform(
	ctx context.Context,
	cfg *config.Config,
	log *logger.Logger,
) (pipeline.TransformFunc, error) {
	awsConfig, err := credentials.AWSConfig(ctx, cfg.Polly.Region, cfg.Credentials.AWSCSV)
	if err != nil {
		return nil, err
	}

	client, err := tts.NewPollyClient(tts.NewPollyAPI(awsConfig, cfg.Polly.Region), cfg.Polly)
	if err != nil {
		return nil, err
	}

	synthesizer, err := tts.NewSynthesizer("polly", client, cfg.Polly.MaxChars, log)
	if err != nil {
		return nil, err
	}

	return synthesizer.Synthesize, nil
}

func newElevenLabsTransform(
	_ context.Context,
	cfg *config.Config,
	log *logger.Logger,
) (pipeline.TransformFunc, error) {
	apiKey, err := credentials.LoadElevenLabsKey(cfg.Credentials.ElevenLabsKeyFile)
	if err != nil {
		return nil, err
	}

	client, err := tts.NewElevenLabsClient(apiKey, cfg.ElevenLabs)
	if err != nil {
		return nil, err
	}

	synthesizer, err := tts.NewSynthesizer("elevenlabs", client, cfg.ElevenLabs.MaxChars, log)
	if err != nil {
		return nil, err
	}

	return synthesizer.Synthesize, nil
}

func seconds(value int) time.Duration {
	return time.Duration(value) * time.Second
}
