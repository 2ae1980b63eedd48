package recognize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkworks/folio/config"
	"github.com/inkworks/folio/pkg/logger"
)

func newTestVisionClient(t *testing.T, handler http.HandlerFunc) *VisionClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewVisionClient(config.RecognitionConfig{
		Endpoint:    srv.URL,
		Model:       "test-model",
		APIKey:      "test-key",
		Timeout:     5 * time.Second,
		Temperature: 0.1,
	}, logger.NewTestLogger())
}

func testRequest() *Request {
	return &Request{
		Page:         2,
		Images:       [][]byte{{1}, {2}, {3}},
		CurrentIndex: 1,
	}
}

func TestVisionRecognizeSuccess(t *testing.T) {
	var captured struct {
		Model    string `json:"model"`
		Messages []struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"messages"`
	}

	c := newTestVisionClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"  page two text "}}]}`))
	})

	text, err := c.Recognize(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "page two text", text)

	require.Len(t, captured.Messages, 1)
	parts := captured.Messages[0].Content
	require.Len(t, parts, 4, "instruction plus three images")
	assert.Equal(t, "text", parts[0].Type)
	assert.Contains(t, parts[0].Text, "Image 2 is the CURRENT page")
}

func TestVisionRecognizeQuotaWithRetryAfter(t *testing.T) {
	c := newTestVisionClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Recognize(context.Background(), testRequest())

	var quota *QuotaError
	require.ErrorAs(t, err, &quota)
	assert.Equal(t, 7*time.Second, quota.RetryAfter)
}

func TestVisionRecognizeQuotaWithoutHint(t *testing.T) {
	c := newTestVisionClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Recognize(context.Background(), testRequest())

	var quota *QuotaError
	require.ErrorAs(t, err, &quota)
	assert.Zero(t, quota.RetryAfter)
}

func TestVisionRecognizeServiceFault(t *testing.T) {
	c := newTestVisionClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	_, err := c.Recognize(context.Background(), testRequest())

	var svc *ServiceError
	require.ErrorAs(t, err, &svc)
	assert.Equal(t, http.StatusInternalServerError, svc.StatusCode)
}

func TestVisionRecognizeMalformedResponse(t *testing.T) {
	c := newTestVisionClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	})

	_, err := c.Recognize(context.Background(), testRequest())

	var parse *ParseError
	assert.ErrorAs(t, err, &parse)
}

func TestVisionRecognizeEmptyContent(t *testing.T) {
	c := newTestVisionClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"   "}}]}`))
	})

	_, err := c.Recognize(context.Background(), testRequest())

	var parse *ParseError
	assert.ErrorAs(t, err, &parse)
}

func TestVisionRecognizeMissingCredential(t *testing.T) {
	c := NewVisionClient(config.RecognitionConfig{
		Endpoint: "http://localhost:0",
		Timeout:  time.Second,
	}, logger.NewTestLogger())

	_, err := c.Recognize(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestRetryAfterHTTPDate(t *testing.T) {
	c := newTestVisionClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", time.Now().Add(30*time.Second).UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Recognize(context.Background(), testRequest())

	var quota *QuotaError
	require.ErrorAs(t, err, &quota)
	assert.Greater(t, quota.RetryAfter, 20*time.Second)
	assert.LessOrEqual(t, quota.RetryAfter, 30*time.Second)
}
