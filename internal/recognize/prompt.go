package recognize

import "fmt"

const instructionTemplate = `You receive %d scanned page image(s) from the same document. Image %d is the CURRENT page; any other images are the neighboring pages, provided only as context for words split or continued across page boundaries.

Transcribe the CURRENT page only:

- Return a text fragment matching exactly what appears on the current page. Do not produce a standalone document, headers or front matter.
- Use the neighboring pages only to disambiguate truncated words, running headings and hyphenated line breaks. Never include their content.
- Preserve the historical spelling and diacritics of the original; normalize only obvious scanning noise.
- Remove scanning artifacts, join words broken by mid-word line breaks, and drop duplicated fragments.
- Where the formatting is uncertain, mark the passage inline as [?: ...] instead of guessing silently.
- Output the transcription itself, with no commentary or interpretation.`

// Instruction renders the fixed extraction instruction for a window of
// imageCount images whose target page sits at currentIndex (0-based).
func Instruction(imageCount, currentIndex int) string {
	return fmt.Sprintf(instructionTemplate, imageCount, currentIndex+1)
}
