// Package assemble owns the persisted output of a run: one text fragment
// per processed page, and the master document that references them.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/inkworks/folio/pkg/logger"
	"github.com/inkworks/folio/pkg/storage"
)

// Assembler is the only component that mutates the master document. The
// mutex keeps manifest updates a single-writer critical section.
type Assembler struct {
	mu        sync.Mutex
	fragments *FragmentStore
	store     storage.Storage
	title     string
	author    string
	logger    logger.Logger
}

func NewAssembler(store storage.Storage, workspace, title, author string, log logger.Logger) *Assembler {
	return &Assembler{
		fragments: NewFragmentStore(store, workspace),
		store:     store,
		title:     title,
		author:    author,
		logger:    log,
	}
}

// Fragments exposes the fragment store for resume scanning.
func (a *Assembler) Fragments() *FragmentStore {
	return a.fragments
}

// RecordPage durably writes the page's fragment, then adds its inclusion
// reference to the manifest. The fragment write comes first: if the
// process dies between the two, resumption is still derived correctly
// from the fragment's existence and the reference is backfilled by the
// next Reconcile.
func (a *Assembler) RecordPage(ctx context.Context, page int, text string) error {
	if page < 1 {
		return fmt.Errorf("invalid page index %d", page)
	}
	if err := a.fragments.Write(ctx, page, text); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	m, err := a.loadManifest(ctx)
	if err != nil {
		return err
	}
	if m.Includes(page) {
		a.logger.Debug("Page already referenced in manifest", logger.Int("page", page))
		return nil
	}
	m.Include(page)
	return a.saveManifest(ctx, m)
}

// Reconcile backfills manifest references for fragments that exist but are
// not referenced, healing a crash between a fragment write and its
// manifest update. Under the strict sequential halt-on-failure policy at
// most one reference can be missing, but the sweep is over all fragments
// so the invariant does not rest on that.
func (a *Assembler) Reconcile(ctx context.Context) error {
	indices, err := a.fragments.Indices(ctx)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	m, err := a.loadManifest(ctx)
	if err != nil {
		return err
	}

	healed := 0
	for _, page := range indices {
		if !m.Includes(page) {
			m.Include(page)
			healed++
		}
	}
	if healed == 0 {
		// Still persist the preamble on a fresh workspace.
		if len(indices) == 0 && len(m.Pages) == 0 {
			return a.saveManifest(ctx, m)
		}
		return nil
	}

	a.logger.Warn("Backfilled missing manifest references", logger.Int("count", healed))
	return a.saveManifest(ctx, m)
}

// Finalize ensures the closing marker is present exactly once. Safe to
// call on an already-closed manifest.
func (a *Assembler) Finalize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	m, err := a.loadManifest(ctx)
	if err != nil {
		return err
	}
	if m.Closed {
		return nil
	}
	m.Close()
	return a.saveManifest(ctx, m)
}

// Manifest returns the current manifest model, reading the persisted
// state (or the fresh preamble for an empty workspace).
func (a *Assembler) Manifest(ctx context.Context) (*Manifest, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loadManifest(ctx)
}

// loadManifest reads the persisted manifest, or starts a fresh one with
// the configured preamble when none exists yet. Callers hold a.mu.
func (a *Assembler) loadManifest(ctx context.Context) (*Manifest, error) {
	rc, err := a.store.Get(ctx, a.fragments.manifestKey())
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return NewManifest(a.title, a.author), nil
		}
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := ParseManifest(string(data))
	if err != nil {
		return nil, err
	}
	if m.Title == "" {
		m.Title = a.title
	}
	if m.Author == "" {
		m.Author = a.author
	}
	return m, nil
}

func (a *Assembler) saveManifest(ctx context.Context, m *Manifest) error {
	if err := a.store.Store(ctx, strings.NewReader(m.Serialize()), a.fragments.manifestKey()); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
