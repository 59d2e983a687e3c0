// Package llm generates podcast scripts from prompt text with an OpenAI chat
// model, and owns the OpenAI client setup shared by the speech-to-text stage.
package llm

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dlops-io/mega-pipeline-aws/internal/pipeline"
	openai "github.com/sashabaranov/go-openai"
)

// NewOpenAIClient builds a go-openai client. An empty baseURL keeps the
// public API endpoint; a non-positive timeout leaves requests bounded only by
// their context.
func NewOpenAIClient(apiKey, baseURL string, timeout time.Duration) *openai.Client {
	clientConfig := openai.DefaultConfig(apiKey)

	if baseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(baseURL, "/")
	}

	if timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: timeout}
	}

	return openai.NewClientWithConfig(clientConfig)
}

// ClassifyError tags an OpenAI client error with a pipeline marker. API errors
// are classified by status code. Transport failures, timeouts and
// cancellations are transient.
func ClassifyError(operation string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return pipeline.Wrap(pipeline.StatusMarker(apiErr.HTTPStatusCode), operation, err)
	}

	var requestErr *openai.RequestError
	if errors.As(err, &requestErr) && requestErr.HTTPStatusCode != 0 {
		return pipeline.Wrap(pipeline.StatusMarker(requestErr.HTTPStatusCode), operation, err)
	}

	return pipeline.Wrap(pipeline.ErrTransientProvider, operation, err)
}
