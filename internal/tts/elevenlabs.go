package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dlops-io/mega-pipeline-aws/internal/config"
	"github.com/dlops-io/mega-pipeline-aws/internal/pipeline"
)

// API endpoints and paths.
const (
	apiTextToSpeechStream = "/v1/text-to-speech/%s/stream"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	headerAPIKey      = "xi-api-key"
	contentTypeJSON   = "application/json"
	contentTypeMPEG   = "audio/mpeg"
)

// Error messages.
const (
	errFmtServiceErrorWithDetail = "ElevenLabs error (%s): %s"
	errFmtServiceNonOKStatus     = "ElevenLabs returned non-OK status: %s, body: %s"
	errFmtUnexpectedContentType  = "unexpected content type: expected %s, got %s"
)

// Static errors.
var (
	ErrMissingAPIKey  = errors.New("ElevenLabs API key is required")
	ErrMissingVoiceID = errors.New("ElevenLabs voice id is required")
	ErrEmptyChunk     = errors.New("text cannot be empty")
)

// VoiceSettings tunes the ElevenLabs voice for a request.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// ElevenLabsRequest defines the JSON payload of a text-to-speech request.
type ElevenLabsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// ElevenLabsErrorResponse is the error body of the API. Detail is either a
// plain message or an object with status and message fields.
type ElevenLabsErrorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

type errorDetail struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ElevenLabsClient renders text through the ElevenLabs streaming endpoint.
type ElevenLabsClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	settings   config.ElevenLabsConfig
}

// NewElevenLabsClient creates a client for the configured voice.
func NewElevenLabsClient(apiKey string, settings config.ElevenLabsConfig) (*ElevenLabsClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}

	if strings.TrimSpace(settings.VoiceID) == "" {
		return nil, ErrMissingVoiceID
	}

	return &ElevenLabsClient{
		httpClient: &http.Client{
			Timeout: time.Duration(settings.TimeoutSeconds) * time.Second,
		},
		baseURL:  strings.TrimRight(settings.BaseURL, "/"),
		apiKey:   apiKey,
		settings: settings,
	}, nil
}

// SynthesizeChunk sends one chunk of text and returns the MP3 audio.
func (c *ElevenLabsClient) SynthesizeChunk(ctx context.Context, text string) ([]byte, error) {
	const operation = "elevenlabs"

	if strings.TrimSpace(text) == "" {
		return nil, pipeline.Wrap(pipeline.ErrPermanentItem, operation, ErrEmptyChunk)
	}

	requestBody, err := json.Marshal(ElevenLabsRequest{
		Text:    text,
		ModelID: c.settings.ModelID,
		VoiceSettings: VoiceSettings{
			Stability:       c.settings.Stability,
			SimilarityBoost: c.settings.SimilarityBoost,
			Style:           c.settings.Style,
			UseSpeakerBoost: c.settings.UseSpeakerBoost,
		},
	})
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrPermanentItem, operation, fmt.Errorf("failed to marshal request: %w", err))
	}

	endpoint := c.baseURL + fmt.Sprintf(apiTextToSpeechStream, url.PathEscape(c.settings.VoiceID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrPermanentItem, operation, fmt.Errorf("failed to create request: %w", err))
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeMPEG)
	httpReq.Header.Set(headerAPIKey, c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrTransientProvider, operation,
			fmt.Errorf("failed to send request to %s: %w", c.baseURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, pipeline.Wrap(pipeline.StatusMarker(resp.StatusCode), operation, parseErrorResponse(resp))
	}

	contentType := resp.Header.Get(headerContentType)
	if contentType != "" && !strings.HasPrefix(contentType, contentTypeMPEG) {
		return nil, pipeline.Wrap(pipeline.ErrTransientProvider, operation,
			fmt.Errorf(errFmtUnexpectedContentType, contentTypeMPEG, contentType))
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrTransientProvider, operation,
			fmt.Errorf("failed to read audio data: %w", err))
	}

	if len(audioData) == 0 {
		return nil, pipeline.Wrap(pipeline.ErrPermanentItem, operation, ErrEmptyAudio)
	}

	return audioData, nil
}

// parseErrorResponse decodes the detail of an API error, falling back to the
// raw body.
func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errorResp ElevenLabsErrorResponse

	err := json.Unmarshal(body, &errorResp)
	if err != nil || len(errorResp.Detail) == 0 {
		return fmt.Errorf(errFmtServiceNonOKStatus, resp.Status, strings.TrimSpace(string(body)))
	}

	var message string

	err = json.Unmarshal(errorResp.Detail, &message)
	if err == nil {
		return fmt.Errorf(errFmtServiceErrorWithDetail, resp.Status, message)
	}

	var detail errorDetail

	err = json.Unmarshal(errorResp.Detail, &detail)
	if err == nil && detail.Message != "" {
		return fmt.Errorf(errFmtServiceErrorWithDetail, resp.Status, detail.Status+": "+detail.Message)
	}

	return fmt.Errorf(errFmtServiceErrorWithDetail, resp.Status, string(errorResp.Detail))
}
