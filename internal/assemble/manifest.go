package assemble

import (
	"bufio"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// closingMarker terminates the master document. When present it is always
// the last content line; inclusion references are inserted ahead of it.
const closingMarker = "<!-- folio:end -->"

var includeRe = regexp.MustCompile(`^@include "pages/page_(\d+)\.md"$`)

// Manifest is the in-memory model of the master document: a preamble, the
// ordered inclusion list, and the closed flag. It is serialized on demand;
// the on-disk text is never patched in place.
type Manifest struct {
	Title  string
	Author string
	Pages  []int
	Closed bool
}

// NewManifest creates an open manifest with an empty inclusion list.
func NewManifest(title, author string) *Manifest {
	return &Manifest{Title: title, Author: author}
}

// Include adds an inclusion reference for page, keeping the list strictly
// increasing and duplicate-free. Including an already-referenced page is a
// no-op so recording is idempotent.
func (m *Manifest) Include(page int) {
	i := sort.SearchInts(m.Pages, page)
	if i < len(m.Pages) && m.Pages[i] == page {
		return
	}
	m.Pages = append(m.Pages, 0)
	copy(m.Pages[i+1:], m.Pages[i:])
	m.Pages[i] = page
}

// Includes reports whether page is already referenced.
func (m *Manifest) Includes(page int) bool {
	i := sort.SearchInts(m.Pages, page)
	return i < len(m.Pages) && m.Pages[i] == page
}

// Close marks the manifest finalized. Closing twice is a no-op.
func (m *Manifest) Close() {
	m.Closed = true
}

// Serialize renders the manifest as the master document text.
func (m *Manifest) Serialize() string {
	var b strings.Builder

	title := m.Title
	if title == "" {
		title = "Untitled document"
	}
	fmt.Fprintf(&b, "# %s\n", title)
	if m.Author != "" {
		fmt.Fprintf(&b, "\nBy %s\n", m.Author)
	}
	b.WriteString("\n")

	for _, page := range m.Pages {
		fmt.Fprintf(&b, "@include %q\n", fragmentName(page))
	}

	if m.Closed {
		b.WriteString(closingMarker + "\n")
	}

	return b.String()
}

// ParseManifest rebuilds the model from serialized text.
func ParseManifest(text string) (*Manifest, error) {
	m := &Manifest{}

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case strings.HasPrefix(line, "# ") && m.Title == "":
			m.Title = strings.TrimPrefix(line, "# ")
		case strings.HasPrefix(line, "By ") && m.Author == "":
			m.Author = strings.TrimPrefix(line, "By ")
		case line == closingMarker:
			m.Closed = true
		default:
			match := includeRe.FindStringSubmatch(line)
			if match == nil {
				continue
			}
			var page int
			if _, err := fmt.Sscanf(match[1], "%d", &page); err != nil {
				return nil, fmt.Errorf("invalid inclusion reference %q: %w", line, err)
			}
			m.Include(page)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan manifest: %w", err)
	}

	return m, nil
}
