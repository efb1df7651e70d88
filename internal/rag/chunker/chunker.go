package chunker

import (
	"fmt"
	"strings"

	"github.com/legalbot/legalbot/internal/domain/commonModels"
)

// Page is one page of extracted document text, as produced by the
// extraction collaborator.
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Chunk is a raw text window before it is assigned ids and a document.
type Chunk struct {
	Text    string
	PageNum int
	Seq     int
}

// Chunker slides a fixed-size window with overlap across the concatenated
// page text of a document. Every chunk except possibly the last one has
// exactly chunkSize characters, and consecutive chunks share exactly
// overlap characters. The page number of a chunk is the page containing
// its first character.
type Chunker struct {
	chunkSize int
	overlap   int
}

func New(chunkSize int, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, chunk size), got %d for size %d", overlap, chunkSize)
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk splits the ordered page texts into overlapping windows. Pages with
// no usable text contribute nothing; a document with no usable text at all
// fails with ErrExtractionEmpty. A document shorter than the window yields
// exactly one chunk.
func (c *Chunker) Chunk(pages []Page) ([]Chunk, error) {
	type pageStart struct {
		offset int
		page   int
	}

	var full []rune
	var starts []pageStart

	for _, p := range pages {
		cleaned := cleanText(p.Text)
		if cleaned == "" {
			continue
		}
		if len(full) > 0 {
			full = append(full, '\n')
		}
		starts = append(starts, pageStart{offset: len(full), page: p.Number})
		full = append(full, []rune(cleaned)...)
	}

	if len(full) == 0 {
		return nil, commonModels.ErrExtractionEmpty
	}

	pageAt := func(offset int) int {
		page := starts[0].page
		for _, s := range starts {
			if s.offset > offset {
				break
			}
			page = s.page
		}
		return page
	}

	var chunks []Chunk
	step := c.chunkSize - c.overlap
	for start := 0; start < len(full); start += step {
		end := start + c.chunkSize
		if end > len(full) {
			end = len(full)
		}
		chunks = append(chunks, Chunk{
			Text:    string(full[start:end]),
			PageNum: pageAt(start),
			Seq:     len(chunks),
		})
		if end == len(full) {
			break
		}
	}

	return chunks, nil
}

// cleanText collapses runs of whitespace into single spaces, matching how
// the corpus text is normalized before indexing.
func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
