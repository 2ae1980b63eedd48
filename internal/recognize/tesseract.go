package recognize

import (
	"context"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/inkworks/folio/config"
	"github.com/inkworks/folio/pkg/logger"
)

// TesseractClient runs local OCR for offline runs. It only looks at the
// current page image; the neighbor context cannot be used without a
// language model behind the extraction, so it is ignored here.
type TesseractClient struct {
	mu        sync.Mutex
	client    *gosseract.Client
	languages []string
	logger    logger.Logger
}

func NewTesseractClient(cfg config.RecognitionConfig, log logger.Logger) (*TesseractClient, error) {
	client := gosseract.NewClient()
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	if err := client.SetLanguage(langs...); err != nil {
		client.Close()
		return nil, err
	}

	return &TesseractClient{
		client:    client,
		languages: langs,
		logger:    log,
	}, nil
}

// Recognize implements Recognizer.Recognize
func (t *TesseractClient) Recognize(ctx context.Context, req *Request) (string, error) {
	if len(req.Images) == 0 || req.CurrentIndex >= len(req.Images) {
		return "", &ServiceError{Message: "no current-page image in request"}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.client.SetImageFromBytes(req.Images[req.CurrentIndex]); err != nil {
		return "", &ServiceError{Message: err.Error()}
	}
	text, err := t.client.Text()
	if err != nil {
		return "", &ServiceError{Message: err.Error()}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &ParseError{Message: "tesseract produced no text"}
	}

	t.logger.Debug("Local OCR succeeded",
		logger.Int("page", req.Page),
		logger.Int("chars", len(text)),
	)

	return text, nil
}

// Close implements Recognizer.Close
func (t *TesseractClient) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}
