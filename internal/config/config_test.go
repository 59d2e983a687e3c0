// Package config_test tests the configuration loading for the media pipeline.
package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dlops-io/mega-pipeline-aws/internal/config"
	"github.com/dlops-io/mega-pipeline-aws/internal/credentials"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "project.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestUnmarshalConfig(t *testing.T) {
	t.Parallel()

	tomlData := `
[storage]
backend = "nats"
work_dir = "/data/pipeline"

[nats]
url = "nats://127.0.0.1:4222"
object_store_bucket = "MEGAPIPELINE"
subject_prefix = "media.artifacts"

[runner]
workers = 4

[llm]
model = "gpt-4o-mini"
temperatures = [0.5, 0.7]
max_tokens = 900

[elevenlabs]
voice_id = "voice-1"
stability = 0.3
similarity_boost = 0.9
use_speaker_boost = false

[paths]
base_logs_dir = "/var/log/megapipe"
`

	var cfg config.Config

	err := toml.Unmarshal([]byte(tomlData), &cfg)
	require.NoError(t, err)

	assert.Equal(t, config.BackendNATS, cfg.Storage.Backend)
	assert.Equal(t, "/data/pipeline", cfg.Storage.WorkDir)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.URL)
	assert.Equal(t, "MEGAPIPELINE", cfg.NATS.ObjectStoreBucket)
	assert.Equal(t, "media.artifacts", cfg.NATS.SubjectPrefix)
	assert.Equal(t, 4, cfg.Runner.Workers)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, []float64{0.5, 0.7}, cfg.LLM.Temperatures)
	assert.Equal(t, 900, cfg.LLM.MaxTokens)
	assert.Equal(t, "voice-1", cfg.ElevenLabs.VoiceID)
	assert.InEpsilon(t, 0.3, cfg.ElevenLabs.Stability, 0.001)
	assert.False(t, cfg.ElevenLabs.UseSpeakerBoost)
	assert.Equal(t, "/var/log/megapipe", cfg.Paths.BaseLogsDir)
}

func TestLoad_DefaultsFromEmptyFile(t *testing.T) {
	t.Setenv(credentials.EnvAWSCredentialsFile, "")
	t.Setenv(credentials.EnvOpenAIKeyFile, "")

	cfg, err := config.Load(writeConfig(t, ""), nil)
	require.NoError(t, err)

	assert.Equal(t, config.BackendS3, cfg.Storage.Backend)
	assert.Equal(t, config.DefaultBucket, cfg.Storage.Bucket)
	assert.Equal(t, config.DefaultRegion, cfg.Storage.Region)
	assert.Equal(t, config.DefaultRegion, cfg.Polly.Region)
	assert.Equal(t, 1, cfg.Runner.Workers)
	assert.Equal(t, config.DefaultLLMModel, cfg.LLM.Model)
	assert.Equal(t, config.DefaultTemperatures(), cfg.LLM.Temperatures)
	assert.Equal(t, config.DefaultMaxTokens, cfg.LLM.MaxTokens)
	assert.InEpsilon(t, 1.1, cfg.LLM.FrequencyPenalty, 0.001)
	assert.Contains(t, cfg.LLM.PromptTemplate, config.PromptPlaceholder)
	assert.Equal(t, config.DefaultPollyVoice, cfg.Polly.VoiceID)
	assert.Equal(t, config.DefaultPollyChars, cfg.Polly.MaxChars)
	assert.Equal(t, config.DefaultElevenLabsVoice, cfg.ElevenLabs.VoiceID)
	assert.Equal(t, config.DefaultElevenLabsModel, cfg.ElevenLabs.ModelID)
	assert.InEpsilon(t, 0.5, cfg.ElevenLabs.Stability, 0.001)
	assert.InEpsilon(t, 0.8, cfg.ElevenLabs.SimilarityBoost, 0.001)
	assert.True(t, cfg.ElevenLabs.UseSpeakerBoost)
	assert.Equal(t, config.DefaultLogsDir, cfg.Paths.BaseLogsDir)
	assert.Empty(t, cfg.Credentials.AWSCSV)
}

func TestLoad_CredentialPathsFromEnvironment(t *testing.T) {
	t.Setenv(credentials.EnvAWSCredentialsFile, "/secrets/aws.csv")
	t.Setenv(credentials.EnvOpenAIKeyFile, "/secrets/openai.json")

	cfg, err := config.Load(writeConfig(t, ""), nil)
	require.NoError(t, err)
	assert.Equal(t, "/secrets/aws.csv", cfg.Credentials.AWSCSV)
	assert.Equal(t, "/secrets/openai.json", cfg.Credentials.OpenAIKeyFile)

	explicit := writeConfig(t, "[credentials]\naws_csv = \"/etc/aws.csv\"\n")

	cfg, err = config.Load(explicit, nil)
	require.NoError(t, err)
	assert.Equal(t, "/etc/aws.csv", cfg.Credentials.AWSCSV)
}

func TestLoad_PartialSectionsKeepDefaults(t *testing.T) {
	t.Setenv(credentials.EnvAWSCredentialsFile, "")
	t.Setenv(credentials.EnvOpenAIKeyFile, "")

	content := "[storage]\nregion = \"eu-west-1\"\n\n[elevenlabs]\nvoice_id = \"other\"\nmax_chars = 2500\n"

	cfg, err := config.Load(writeConfig(t, content), nil)
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", cfg.Polly.Region)

	assert.Equal(t, "other", cfg.ElevenLabs.VoiceID)
	assert.Equal(t, 2500, cfg.ElevenLabs.MaxChars)
	assert.InEpsilon(t, config.DefaultStability, cfg.ElevenLabs.Stability, 0.001)
	assert.InEpsilon(t, config.DefaultSimilarityBoost, cfg.ElevenLabs.SimilarityBoost, 0.001)
	assert.Zero(t, cfg.ElevenLabs.Style)
	assert.True(t, cfg.ElevenLabs.UseSpeakerBoost)
	assert.Equal(t, config.DefaultElevenLabsModel, cfg.ElevenLabs.ModelID)
}

func TestLoad_ExplicitZeroValuesAreKept(t *testing.T) {
	t.Setenv(credentials.EnvAWSCredentialsFile, "")
	t.Setenv(credentials.EnvOpenAIKeyFile, "")

	content := `
[llm]
top_p = 0.5
frequency_penalty = 0.0
presence_penalty = 0.0

[elevenlabs]
stability = 0.0
use_speaker_boost = false
`

	cfg, err := config.Load(writeConfig(t, content), nil)
	require.NoError(t, err)

	assert.InEpsilon(t, 0.5, cfg.LLM.TopP, 0.001)
	assert.Zero(t, cfg.LLM.FrequencyPenalty)
	assert.Zero(t, cfg.LLM.PresencePenalty)
	assert.Zero(t, cfg.ElevenLabs.Stability)
	assert.InEpsilon(t, config.DefaultSimilarityBoost, cfg.ElevenLabs.SimilarityBoost, 0.001)
	assert.False(t, cfg.ElevenLabs.UseSpeakerBoost)
}

func TestValidate_ProblemsInFixedOrder(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.ElevenLabs.Stability = 2
	cfg.ElevenLabs.SimilarityBoost = -1
	cfg.ElevenLabs.Style = 3

	want := "elevenlabs.stability must be between 0.0 and 1.0; " +
		"elevenlabs.similarity_boost must be between 0.0 and 1.0; " +
		"elevenlabs.style must be between 0.0 and 1.0"

	for range 5 {
		err := cfg.Validate()
		require.ErrorIs(t, err, config.ErrInvalid)
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"), nil)
	require.Error(t, err)

	_, err = config.Load(writeConfig(t, "[storage\nbackend ="), nil)
	require.Error(t, err)

	_, err = config.Load(writeConfig(t, "[storage]\nbackend = \"ftp\"\n"), nil)
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
		want   string
	}{
		{
			name:   "nats backend without url",
			mutate: func(cfg *config.Config) { cfg.Storage.Backend = config.BackendNATS },
			want:   "nats.url",
		},
		{
			name:   "negative workers",
			mutate: func(cfg *config.Config) { cfg.Runner.Workers = -1 },
			want:   "runner.workers",
		},
		{
			name:   "temperature out of range",
			mutate: func(cfg *config.Config) { cfg.LLM.Temperatures = []float64{2.5} },
			want:   "temperature",
		},
		{
			name:   "template without placeholder",
			mutate: func(cfg *config.Config) { cfg.LLM.PromptTemplate = "write a podcast" },
			want:   "prompt_template",
		},
		{
			name:   "stability out of range",
			mutate: func(cfg *config.Config) { cfg.ElevenLabs.Stability = 1.5 },
			want:   "elevenlabs.stability",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()

			require.NoError(t, cfg.Validate())

			testCase.mutate(&cfg)

			err := cfg.Validate()
			require.ErrorIs(t, err, config.ErrInvalid)
			assert.Contains(t, err.Error(), testCase.want)
		})
	}
}
