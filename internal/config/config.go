// Package config provides the configuration structure for the media pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/dlops-io/mega-pipeline-aws/internal/credentials"
	"github.com/pelletier/go-toml/v2"
)

// Storage backends.
const (
	BackendS3   = "s3"
	BackendNATS = "nats"
)

// ErrInvalid marks configuration validation failures.
var ErrInvalid = errors.New("invalid configuration")

// StorageConfig holds the remote store and local working directory settings.
type StorageConfig struct {
	Backend  string `toml:"backend"`
	Bucket   string `toml:"bucket"`
	Region   string `toml:"region"`
	Endpoint string `toml:"endpoint"`
	WorkDir  string `toml:"work_dir"`
}

// CredentialsConfig holds the paths of the provider secret files.
type CredentialsConfig struct {
	AWSCSV            string `toml:"aws_csv"`
	OpenAIKeyFile     string `toml:"openai_key_file"`
	ElevenLabsKeyFile string `toml:"elevenlabs_key_file"`
}

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL               string `toml:"url"`
	ObjectStoreBucket string `toml:"object_store_bucket"`
	SubjectPrefix     string `toml:"subject_prefix"`
}

// RunnerConfig holds stage runner settings.
type RunnerConfig struct {
	Workers int `toml:"workers"`
}

// LLMConfig holds the chat completion settings of the generate stage.
type LLMConfig struct {
	BaseURL          string    `toml:"base_url"`
	Model            string    `toml:"model"`
	SystemMessage    string    `toml:"system_message"`
	PromptTemplate   string    `toml:"prompt_template"`
	Temperatures     []float64 `toml:"temperatures"`
	MaxTokens        int       `toml:"max_tokens"`
	TopP             float64   `toml:"top_p"`
	FrequencyPenalty float64   `toml:"frequency_penalty"`
	PresencePenalty  float64   `toml:"presence_penalty"`
	TimeoutSeconds   int       `toml:"timeout_seconds"`
}

// TranscribeConfig holds the speech-to-text settings of the transcribe stage.
type TranscribeConfig struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// PollyConfig holds the AWS Polly settings of the synthesize stage.
type PollyConfig struct {
	Region       string `toml:"region"`
	VoiceID      string `toml:"voice_id"`
	Engine       string `toml:"engine"`
	OutputFormat string `toml:"output_format"`
	MaxChars     int    `toml:"max_chars"`
}

// ElevenLabsConfig holds the ElevenLabs settings of the synthesize-pp stage.
type ElevenLabsConfig struct {
	BaseURL         string  `toml:"base_url"`
	VoiceID         string  `toml:"voice_id"`
	ModelID         string  `toml:"model_id"`
	Stability       float64 `toml:"stability"`
	SimilarityBoost float64 `toml:"similarity_boost"`
	Style           float64 `toml:"style"`
	UseSpeakerBoost bool    `toml:"use_speaker_boost"`
	MaxChars        int     `toml:"max_chars"`
	TimeoutSeconds  int     `toml:"timeout_seconds"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	Storage     StorageConfig     `toml:"storage"`
	Credentials CredentialsConfig `toml:"credentials"`
	NATS        NATSConfig        `toml:"nats"`
	Runner      RunnerConfig      `toml:"runner"`
	LLM         LLMConfig         `toml:"llm"`
	Transcribe  TranscribeConfig  `toml:"transcribe"`
	Polly       PollyConfig       `toml:"polly"`
	ElevenLabs  ElevenLabsConfig  `toml:"elevenlabs"`
	Paths       PathsConfig       `toml:"paths"`
}

// Load loads the configuration. An explicit path is read directly; otherwise
// the project configuration is discovered by the central configurator.
// Defaults are applied and the result validated.
func Load(path string, log *logger.Logger) (*Config, error) {
	cfg := decodeBase()

	if path != "" {
		err := decodeFile(path, &cfg)
		if err != nil {
			return nil, err
		}
	} else {
		err := configurator.Load(&cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
		}
	}

	cfg.ApplyDefaults()
	cfg.applyEnvironment()

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read configuration '%s': %w", path, err)
	}

	err = toml.Unmarshal(data, cfg)
	if err != nil {
		return fmt.Errorf("failed to parse configuration '%s': %w", path, err)
	}

	return nil
}

// applyEnvironment fills unset credential paths from the environment.
func (c *Config) applyEnvironment() {
	if c.Credentials.AWSCSV == "" {
		c.Credentials.AWSCSV = os.Getenv(credentials.EnvAWSCredentialsFile)
	}

	if c.Credentials.OpenAIKeyFile == "" {
		c.Credentials.OpenAIKeyFile = os.Getenv(credentials.EnvOpenAIKeyFile)
	}
}

// Validate checks the settings every command relies on.
func (c *Config) Validate() error {
	var problems []string

	switch c.Storage.Backend {
	case BackendS3:
		if strings.TrimSpace(c.Storage.Bucket) == "" {
			problems = append(problems, "storage.bucket is required for the s3 backend")
		}
	case BackendNATS:
		if strings.TrimSpace(c.NATS.URL) == "" {
			problems = append(problems, "nats.url is required for the nats backend")
		}

		if strings.TrimSpace(c.NATS.ObjectStoreBucket) == "" {
			problems = append(problems, "nats.object_store_bucket is required for the nats backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.backend %q is not one of s3, nats", c.Storage.Backend))
	}

	if c.Runner.Workers < 1 {
		problems = append(problems, "runner.workers must be at least 1")
	}

	if len(c.LLM.Temperatures) == 0 {
		problems = append(problems, "llm.temperatures must not be empty")
	}

	for _, temperature := range c.LLM.Temperatures {
		if temperature < 0 || temperature > 2 {
			problems = append(problems, fmt.Sprintf("llm temperature %.2f outside [0, 2]", temperature))
		}
	}

	if c.LLM.TopP < 0 || c.LLM.TopP > 1 {
		problems = append(problems, "llm.top_p must be between 0.0 and 1.0")
	}

	if !strings.Contains(c.LLM.PromptTemplate, PromptPlaceholder) {
		problems = append(problems, "llm.prompt_template must contain "+PromptPlaceholder)
	}

	voiceSettings := []struct {
		name  string
		value float64
	}{
		{name: "elevenlabs.stability", value: c.ElevenLabs.Stability},
		{name: "elevenlabs.similarity_boost", value: c.ElevenLabs.SimilarityBoost},
		{name: "elevenlabs.style", value: c.ElevenLabs.Style},
	}

	for _, setting := range voiceSettings {
		if setting.value < 0 || setting.value > 1 {
			problems = append(problems, setting.name+" must be between 0.0 and 1.0")
		}
	}

	if c.Polly.MaxChars < 1 || c.ElevenLabs.MaxChars < 1 {
		problems = append(problems, "max_chars must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}

	return nil
}
