package chunker

import (
	"errors"
	"strings"
	"testing"

	"github.com/legalbot/legalbot/internal/domain/commonModels"
)

func repeatText(word string, n int) string {
	return strings.TrimSpace(strings.Repeat(word+" ", n))
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		overlap   int
		expectErr bool
	}{
		{"valid", 500, 50, false},
		{"zero overlap", 100, 0, false},
		{"zero size", 0, 0, true},
		{"overlap equals size", 100, 100, true},
		{"negative overlap", 100, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.size, tt.overlap)
			if (err != nil) != tt.expectErr {
				t.Errorf("New(%d, %d) error = %v, expectErr %v", tt.size, tt.overlap, err, tt.expectErr)
			}
		})
	}
}

func TestChunk_SizeBoundsAndOverlap(t *testing.T) {
	const size = 100
	const overlap = 20

	c, err := New(size, overlap)
	if err != nil {
		t.Fatal(err)
	}

	chunks, err := c.Chunk([]Page{{Number: 1, Text: repeatText("section", 120)}})
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, ch := range chunks {
		if i < len(chunks)-1 && len([]rune(ch.Text)) != size {
			t.Errorf("chunk %d has length %d, want %d", i, len([]rune(ch.Text)), size)
		}
		if ch.Seq != i {
			t.Errorf("chunk %d has seq %d", i, ch.Seq)
		}
	}

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Text)
		cur := []rune(chunks[i].Text)
		tail := string(prev[len(prev)-overlap:])
		head := string(cur[:overlap])
		if tail != head {
			t.Errorf("chunks %d/%d do not share %d characters: %q vs %q", i-1, i, overlap, tail, head)
		}
	}
}

func TestChunk_CoverageReconstruction(t *testing.T) {
	const size = 80
	const overlap = 15

	c, _ := New(size, overlap)
	pages := []Page{
		{Number: 1, Text: repeatText("murder", 40)},
		{Number: 2, Text: repeatText("theft", 35)},
	}

	chunks, err := c.Chunk(pages)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}

	var rebuilt strings.Builder
	for i, ch := range chunks {
		runes := []rune(ch.Text)
		if i == 0 {
			rebuilt.WriteString(ch.Text)
		} else {
			rebuilt.WriteString(string(runes[overlap:]))
		}
	}

	want := cleanText(pages[0].Text) + "\n" + cleanText(pages[1].Text)
	if rebuilt.String() != want {
		t.Errorf("reconstructed text does not match source:\ngot  %q\nwant %q", rebuilt.String(), want)
	}
}

func TestChunk_ShortDocumentSingleChunk(t *testing.T) {
	c, _ := New(500, 50)

	chunks, err := c.Chunk([]Page{{Number: 1, Text: "Section 302 defines murder."}})
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected exactly 1 chunk, got %d", len(chunks))
	}
	if chunks[0].PageNum != 1 || chunks[0].Seq != 0 {
		t.Errorf("unexpected chunk metadata: %+v", chunks[0])
	}
}

func TestChunk_BlankPagesContributeNothing(t *testing.T) {
	c, _ := New(500, 50)

	chunks, err := c.Chunk([]Page{
		{Number: 1, Text: "   \n\t  "},
		{Number: 2, Text: "Actual content on the second page."},
		{Number: 3, Text: ""},
	})
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].PageNum != 2 {
		t.Errorf("chunk attributed to page %d, want 2", chunks[0].PageNum)
	}
}

func TestChunk_EmptyDocument(t *testing.T) {
	c, _ := New(500, 50)

	_, err := c.Chunk([]Page{{Number: 1, Text: "  "}, {Number: 2, Text: ""}})
	if !errors.Is(err, commonModels.ErrExtractionEmpty) {
		t.Errorf("expected ErrExtractionEmpty, got %v", err)
	}
}

func TestChunk_PageAttribution(t *testing.T) {
	const size = 50
	const overlap = 10

	c, _ := New(size, overlap)
	pages := []Page{
		{Number: 1, Text: repeatText("alpha", 8)},
		{Number: 2, Text: repeatText("beta", 30)},
	}

	chunks, err := c.Chunk(pages)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}

	if chunks[0].PageNum != 1 {
		t.Errorf("first chunk attributed to page %d, want 1", chunks[0].PageNum)
	}
	last := chunks[len(chunks)-1]
	if last.PageNum != 2 {
		t.Errorf("last chunk attributed to page %d, want 2", last.PageNum)
	}
}
