package recognize

import (
	"fmt"

	"github.com/inkworks/folio/config"
	"github.com/inkworks/folio/pkg/logger"
)

// New creates the recognition backend named in cfg.Backend.
func New(cfg config.RecognitionConfig, log logger.Logger) (Recognizer, error) {
	switch cfg.Backend {
	case "vision":
		return NewVisionClient(cfg, log), nil
	case "tesseract":
		return NewTesseractClient(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported recognition backend: %s", cfg.Backend)
	}
}
