package config

// PromptPlaceholder marks where the prompt text goes in llm.prompt_template.
const PromptPlaceholder = "{{input}}"

// Default values.
const (
	DefaultBucket        = "megapipeline-s3bucket"
	DefaultRegion        = "us-east-1"
	DefaultWorkDir       = "."
	DefaultSubjectPrefix = "megapipeline.artifacts"
	DefaultLogsDir       = "logs"

	DefaultLLMModel         = "gpt-3.5-turbo"
	DefaultSystemMessage    = "You are a helpful assistant."
	DefaultMaxTokens        = 700
	DefaultTopP             = 1.0
	DefaultFrequencyPenalty = 1.1
	DefaultPresencePenalty  = 1.0

	DefaultTranscribeModel    = "whisper-1"
	DefaultTranscribeLanguage = "en"

	DefaultPollyVoice  = "Joanna"
	DefaultPollyFormat = "mp3"
	DefaultPollyChars  = 3000

	DefaultElevenLabsURL   = "https://api.elevenlabs.io"
	DefaultElevenLabsVoice = "TG3keNw5JZvsEiTtWt7t"
	DefaultElevenLabsModel = "eleven_multilingual_v2"
	DefaultElevenLabsChars = 5000

	DefaultStability       = 0.5
	DefaultSimilarityBoost = 0.8
	DefaultStyle           = 0.0
	DefaultUseSpeakerBoost = true

	DefaultTimeoutSeconds = 120
)

// DefaultPromptTemplate asks for a long podcast script seeded by the prompt.
const DefaultPromptTemplate = `
Create a transcript for the podcast about cheese with 1000 or more words.
Use the below text as a starting point for the cheese podcast.
` + PromptPlaceholder + `
`

// DefaultTemperatures are sampled per request so regenerated scripts differ.
func DefaultTemperatures() []float64 {
	return []float64{0.9, 0.95, 0.85, 0.87, 0.92, 0.97}
}

// Default returns a configuration holding every default value.
func Default() Config {
	cfg := decodeBase()

	cfg.ApplyDefaults()

	return cfg
}

// decodeBase holds the defaults for which zero is a valid setting. Load decodes
// the configuration file over it, so absent keys keep these values and an
// explicit zero is kept.
func decodeBase() Config {
	var cfg Config

	cfg.LLM.TopP = DefaultTopP
	cfg.LLM.FrequencyPenalty = DefaultFrequencyPenalty
	cfg.LLM.PresencePenalty = DefaultPresencePenalty

	cfg.ElevenLabs.Stability = DefaultStability
	cfg.ElevenLabs.SimilarityBoost = DefaultSimilarityBoost
	cfg.ElevenLabs.Style = DefaultStyle
	cfg.ElevenLabs.UseSpeakerBoost = DefaultUseSpeakerBoost

	return cfg
}

// ApplyDefaults fills every field whose zero value means unset. Numeric
// settings for which zero is a valid choice (top_p, penalties, ElevenLabs
// voice settings) are only set by Default and Load.
func (c *Config) ApplyDefaults() {
	c.applyStorageDefaults()
	c.applyLLMDefaults()
	c.applySpeechDefaults()

	if c.Runner.Workers == 0 {
		c.Runner.Workers = 1
	}

	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = DefaultSubjectPrefix
	}

	if c.Paths.BaseLogsDir == "" {
		c.Paths.BaseLogsDir = DefaultLogsDir
	}
}

func (c *Config) applyStorageDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendS3
	}

	if c.Storage.Bucket == "" {
		c.Storage.Bucket = DefaultBucket
	}

	if c.Storage.Region == "" {
		c.Storage.Region = DefaultRegion
	}

	if c.Storage.WorkDir == "" {
		c.Storage.WorkDir = DefaultWorkDir
	}
}

func (c *Config) applyLLMDefaults() {
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultLLMModel
	}

	if c.LLM.SystemMessage == "" {
		c.LLM.SystemMessage = DefaultSystemMessage
	}

	if c.LLM.PromptTemplate == "" {
		c.LLM.PromptTemplate = DefaultPromptTemplate
	}

	if len(c.LLM.Temperatures) == 0 {
		c.LLM.Temperatures = DefaultTemperatures()
	}

	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = DefaultMaxTokens
	}

	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = DefaultTimeoutSeconds
	}
}

func (c *Config) applySpeechDefaults() {
	if c.Transcribe.Model == "" {
		c.Transcribe.Model = DefaultTranscribeModel
	}

	if c.Transcribe.Language == "" {
		c.Transcribe.Language = DefaultTranscribeLanguage
	}

	if c.Transcribe.TimeoutSeconds == 0 {
		c.Transcribe.TimeoutSeconds = DefaultTimeoutSeconds
	}

	if c.Polly.Region == "" {
		c.Polly.Region = c.Storage.Region
	}

	if c.Polly.VoiceID == "" {
		c.Polly.VoiceID = DefaultPollyVoice
	}

	if c.Polly.OutputFormat == "" {
		c.Polly.OutputFormat = DefaultPollyFormat
	}

	if c.Polly.MaxChars == 0 {
		c.Polly.MaxChars = DefaultPollyChars
	}

	c.applyElevenLabsDefaults()
}

func (c *Config) applyElevenLabsDefaults() {
	if c.ElevenLabs.BaseURL == "" {
		c.ElevenLabs.BaseURL = DefaultElevenLabsURL
	}

	if c.ElevenLabs.VoiceID == "" {
		c.ElevenLabs.VoiceID = DefaultElevenLabsVoice
	}

	if c.ElevenLabs.ModelID == "" {
		c.ElevenLabs.ModelID = DefaultElevenLabsModel
	}

	if c.ElevenLabs.MaxChars == 0 {
		c.ElevenLabs.MaxChars = DefaultElevenLabsChars
	}

	if c.ElevenLabs.TimeoutSeconds == 0 {
		c.ElevenLabs.TimeoutSeconds = DefaultTimeoutSeconds
	}
}
