package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"

	"github.com/inkworks/folio/config"
	"github.com/inkworks/folio/pkg/logger"
)

// FitzRenderer rasterizes pages with MuPDF and normalizes the result for
// the recognition service (optional grayscale and width cap), encoding to
// JPEG. A mutex serializes access: fitz documents are not safe for
// concurrent page rendering.
type FitzRenderer struct {
	mu     sync.Mutex
	doc    *fitz.Document
	cfg    config.RenderConfig
	logger logger.Logger
}

func NewFitzRenderer(path string, cfg config.RenderConfig, log logger.Logger) (*FitzRenderer, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document for rendering: %w", err)
	}
	return &FitzRenderer{
		doc:    doc,
		cfg:    cfg,
		logger: log,
	}, nil
}

// Render implements Renderer.Render
func (r *FitzRenderer) Render(ctx context.Context, pageIndex int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pageIndex < 1 || pageIndex > r.PageCount() {
		return nil, fmt.Errorf("page %d: %w", pageIndex, ErrPageOutOfRange)
	}

	r.mu.Lock()
	img, err := r.doc.ImageDPI(pageIndex-1, r.cfg.DPI)
	r.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize page %d: %w", pageIndex, err)
	}

	img = r.normalize(img)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(r.cfg.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode page %d: %w", pageIndex, err)
	}

	r.logger.Debug("Rendered page",
		logger.Int("page", pageIndex),
		logger.Int("bytes", buf.Len()),
	)

	return buf.Bytes(), nil
}

func (r *FitzRenderer) normalize(img image.Image) image.Image {
	if r.cfg.Grayscale {
		img = imaging.Grayscale(img)
	}
	if r.cfg.MaxWidth > 0 && img.Bounds().Dx() > r.cfg.MaxWidth {
		img = imaging.Resize(img, r.cfg.MaxWidth, 0, imaging.Lanczos)
	}
	return img
}

// PageCount implements Renderer.PageCount
func (r *FitzRenderer) PageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc.NumPage()
}

// Close implements Renderer.Close
func (r *FitzRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.doc == nil {
		return nil
	}
	err := r.doc.Close()
	r.doc = nil
	return err
}
