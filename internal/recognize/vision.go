package recognize

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/inkworks/folio/config"
	"github.com/inkworks/folio/pkg/logger"
)

// VisionClient calls an OpenAI-compatible vision chat-completions API with
// the window images and the fixed extraction instruction.
type VisionClient struct {
	endpoint    string
	model       string
	apiKey      string
	temperature float64
	httpClient  *http.Client
	logger      logger.Logger
}

type visionMessage struct {
	Role    string              `json:"role"`
	Content []visionContentPart `json:"content"`
}

type visionContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *visionImageURL `json:"image_url,omitempty"`
}

type visionImageURL struct {
	URL string `json:"url"`
}

type visionRequest struct {
	Model       string          `json:"model"`
	Messages    []visionMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	Stream      bool            `json:"stream"`
}

type visionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

func NewVisionClient(cfg config.RecognitionConfig, log logger.Logger) *VisionClient {
	return &VisionClient{
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: log,
	}
}

// Recognize implements Recognizer.Recognize
func (c *VisionClient) Recognize(ctx context.Context, req *Request) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingCredential
	}
	if len(req.Images) == 0 {
		return "", &ServiceError{Message: "no images in request"}
	}

	parts := make([]visionContentPart, 0, len(req.Images)+1)
	parts = append(parts, visionContentPart{
		Type: "text",
		Text: Instruction(len(req.Images), req.CurrentIndex),
	})
	for _, img := range req.Images {
		parts = append(parts, visionContentPart{
			Type: "image_url",
			ImageURL: &visionImageURL{
				URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img),
			},
		})
	}

	body, err := json.Marshal(visionRequest{
		Model:       c.model,
		Messages:    []visionMessage{{Role: "user", Content: parts}},
		Temperature: c.temperature,
		Stream:      false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &ServiceError{Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ServiceError{StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &QuotaError{RetryAfter: retryAfter(resp)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &ServiceError{
			StatusCode: resp.StatusCode,
			Message:    truncate(string(respBody), 512),
		}
	}

	var result visionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &ParseError{Message: err.Error()}
	}
	if result.Error != nil {
		if result.Error.Code == http.StatusTooManyRequests {
			return "", &QuotaError{}
		}
		return "", &ServiceError{StatusCode: result.Error.Code, Message: result.Error.Message}
	}
	if len(result.Choices) == 0 {
		return "", &ParseError{Message: "response contains no choices"}
	}

	content := strings.TrimSpace(result.Choices[0].Message.Content)
	if content == "" {
		return "", &ParseError{Message: "response text field is empty"}
	}

	c.logger.Debug("Recognition call succeeded",
		logger.Int("page", req.Page),
		logger.Int("images", len(req.Images)),
		logger.Int("chars", len(content)),
	)

	return content, nil
}

// Close implements Recognizer.Close
func (c *VisionClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// retryAfter reads the Retry-After header, either delta-seconds or an
// HTTP-date. Zero means the service gave no hint.
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
