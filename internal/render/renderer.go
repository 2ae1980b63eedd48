// Package render turns single source pages into raster images for the
// recognition step.
package render

import (
	"context"
	"errors"
)

// ErrPageOutOfRange reports that the requested page index is outside the
// document. For neighbor pages this is an expected condition, not a fault.
var ErrPageOutOfRange = errors.New("render: page index out of range")

// Renderer produces a raster image for a single page index (1-based).
type Renderer interface {
	// Render returns the encoded image for the page, or an error wrapping
	// ErrPageOutOfRange when the index is outside [1, PageCount].
	Render(ctx context.Context, pageIndex int) ([]byte, error)
	PageCount() int
	Close() error
}
