package knowledge

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var whitespace = regexp.MustCompile(`\s+`)

// Processor turns stored documents into index chunks.
type Processor struct {
	chunkSize    int
	chunkOverlap int
}

func NewProcessor() *Processor {
	return &Processor{
		chunkSize:    1000,
		chunkOverlap: 100,
	}
}

// ExtractHTML returns the title and the visible body text of an HTML
// document with navigation chrome removed.
func (p *Processor) ExtractHTML(html string) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if title == "" {
		title = "Untitled"
	}

	doc.Find("script, style, nav, footer, header, aside").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	text := whitespace.ReplaceAllString(doc.Find("body").Text(), " ")
	return title, strings.TrimSpace(text), nil
}

// ChunkText splits text on word boundaries into chunks of at most
// chunkSize bytes. Each chunk after the first repeats the last few words
// of the previous one.
func (p *Processor) ChunkText(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	size := 0
	overlap := p.chunkOverlap / 10

	for _, word := range words {
		wordLen := len(word) + 1

		if size+wordLen > p.chunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))

			start := max(0, len(current)-overlap)
			current = append([]string(nil), current[start:]...)
			size = 0
			for _, w := range current {
				size += len(w) + 1
			}
		}

		current = append(current, word)
		size += wordLen
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}

// EstimateChunks guesses the chunk count of a document whose text is
// not extracted, assuming roughly four bytes of file per byte of text.
func (p *Processor) EstimateChunks(sizeBytes int64) int {
	perChunk := int64(p.chunkSize * 4)
	n := int((sizeBytes + perChunk - 1) / perChunk)
	return max(1, n)
}
