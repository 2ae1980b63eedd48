// Package document reads source-document metadata. The page count is
// discovered exactly once at run start and is immutable for the run.
package document

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

// Info describes the source document for one pipeline run.
type Info struct {
	Path       string
	Title      string
	Author     string
	TotalPages int
}

// Inspect opens the document at path and reads its metadata.
func Inspect(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat document: %w", err)
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	info := &Info{
		Path:       path,
		TotalPages: reader.NumPage(),
	}
	if info.TotalPages < 1 {
		return nil, fmt.Errorf("document has no pages: %s", path)
	}

	trailer := reader.Trailer()
	if !trailer.IsNull() {
		meta := trailer.Key("Info")
		if !meta.IsNull() {
			if title := meta.Key("Title"); !title.IsNull() {
				info.Title = title.Text()
			}
			if author := meta.Key("Author"); !author.IsNull() {
				info.Author = author.Text()
			}
		}
	}

	return info, nil
}
