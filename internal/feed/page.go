package feed

import (
	"strconv"
	"strings"

	"blog/internal/models"
)

// Page is one fixed-size slice of a feed. Number is 1-indexed.
type Page struct {
	Posts    []models.Post
	Number   int
	Size     int
	Total    int
	NumPages int
}

func newPage(number, size, total int) Page {
	numPages := 1
	if total > 0 {
		numPages = (total + size - 1) / size
	}
	return Page{Posts: []models.Post{}, Number: number, Size: size, Total: total, NumPages: numPages}
}

// offset is only meaningful for pages that are InRange.
func (p Page) offset() int { return (p.Number - 1) * p.Size }

// InRange reports whether the page number addresses existing posts. It
// compares page numbers, so huge numbers cannot overflow the offset.
func (p Page) InRange() bool { return p.Total > 0 && p.Number >= 1 && p.Number <= p.NumPages }

func (p Page) HasNext() bool { return p.Number < p.NumPages }
func (p Page) HasPrev() bool { return p.Number > 1 }
func (p Page) Next() int     { return p.Number + 1 }
func (p Page) Prev() int     { return p.Number - 1 }

// ParsePage reads a ?page= value. Missing, malformed and non-positive values
// fall back to the first page.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
