package assemble

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/inkworks/folio/pkg/storage"
)

const (
	fragmentDir  = "pages"
	manifestName = "manuscript.md"
)

var fragmentRe = regexp.MustCompile(`page_(\d+)\.md$`)

// fragmentName returns the storage-relative name of a page's fragment.
func fragmentName(page int) string {
	return path.Join(fragmentDir, fmt.Sprintf("page_%04d.md", page))
}

// FragmentStore reads and writes per-page fragments under a workspace
// prefix.
type FragmentStore struct {
	store     storage.Storage
	workspace string
}

func NewFragmentStore(store storage.Storage, workspace string) *FragmentStore {
	return &FragmentStore{store: store, workspace: workspace}
}

func (f *FragmentStore) fragmentKey(page int) string {
	return path.Join(f.workspace, fragmentName(page))
}

func (f *FragmentStore) manifestKey() string {
	return path.Join(f.workspace, manifestName)
}

// Write persists a page's fragment. Overwriting an existing fragment is fine: a
// page is only recorded once per successful attempt.
func (f *FragmentStore) Write(ctx context.Context, page int, text string) error {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if err := f.store.Store(ctx, strings.NewReader(text), f.fragmentKey(page)); err != nil {
		return fmt.Errorf("failed to write fragment for page %d: %w", page, err)
	}
	return nil
}

// Indices returns the page indices of all existing fragments, unsorted.
// Keys that do not look like fragments are ignored.
func (f *FragmentStore) Indices(ctx context.Context) ([]int, error) {
	keys, err := f.store.List(ctx, path.Join(f.workspace, fragmentDir)+"/")
	if err != nil {
		return nil, fmt.Errorf("failed to list fragments: %w", err)
	}

	var indices []int
	for _, key := range keys {
		match := fragmentRe.FindStringSubmatch(key)
		if match == nil {
			continue
		}
		n, err := strconv.Atoi(match[1])
		if err != nil || n < 1 {
			continue
		}
		indices = append(indices, n)
	}
	return indices, nil
}

// StartPage determines where a run resumes: one past the highest existing
// fragment index, or page 1 when no fragments exist. Listing order is
// irrelevant; a true maximum is computed.
func (f *FragmentStore) StartPage(ctx context.Context) (int, error) {
	indices, err := f.Indices(ctx)
	if err != nil {
		return 0, err
	}

	max := 0
	for _, n := range indices {
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}
