// Package window builds the (previous, current, next) image triple handed
// to the recognition step. Windows are ephemeral: built fresh for every
// attempt and never persisted.
package window

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/inkworks/folio/internal/render"
)

// Window is the image context for one target page. Prev and Next are nil
// at document boundaries; Curr is always present in a valid window.
type Window struct {
	Page int
	Prev []byte
	Curr []byte
	Next []byte
}

// Images returns the present images in document order.
func (w *Window) Images() [][]byte {
	imgs := make([][]byte, 0, 3)
	if w.Prev != nil {
		imgs = append(imgs, w.Prev)
	}
	imgs = append(imgs, w.Curr)
	if w.Next != nil {
		imgs = append(imgs, w.Next)
	}
	return imgs
}

// CurrentIndex returns the position of the target page within Images.
func (w *Window) CurrentIndex() int {
	if w.Prev != nil {
		return 1
	}
	return 0
}

// Builder constructs context windows from a page renderer.
type Builder struct {
	renderer render.Renderer
}

func NewBuilder(r render.Renderer) *Builder {
	return &Builder{renderer: r}
}

// Build renders the window for page. The three renders run concurrently
// and must all settle before the window is returned. A neighbor outside
// [1, total] is simply absent; a failed or absent current page makes the
// whole window invalid.
func (b *Builder) Build(ctx context.Context, page, total int) (*Window, error) {
	if page < 1 || page > total {
		return nil, fmt.Errorf("target page %d outside document of %d pages: %w",
			page, total, render.ErrPageOutOfRange)
	}

	w := &Window{Page: page}

	g, gctx := errgroup.WithContext(ctx)
	if page-1 >= 1 {
		g.Go(func() error {
			img, err := b.renderNeighbor(gctx, page-1)
			w.Prev = img
			return err
		})
	}
	g.Go(func() error {
		img, err := b.renderer.Render(gctx, page)
		if err != nil {
			return fmt.Errorf("current page %d render failed: %w", page, err)
		}
		w.Curr = img
		return nil
	})
	if page+1 <= total {
		g.Go(func() error {
			img, err := b.renderNeighbor(gctx, page+1)
			w.Next = img
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return w, nil
}

// renderNeighbor tolerates out-of-range pages; any other render failure
// still fails the window.
func (b *Builder) renderNeighbor(ctx context.Context, page int) ([]byte, error) {
	img, err := b.renderer.Render(ctx, page)
	if err != nil {
		if errors.Is(err, render.ErrPageOutOfRange) {
			return nil, nil
		}
		return nil, fmt.Errorf("neighbor page %d render failed: %w", page, err)
	}
	return img, nil
}
