package quran

import (
	"fmt"
	"slices"
)

// PageBatchSize is how many page images are delivered together.
const PageBatchSize = 8

// DistinctPages returns each page referenced by ayat exactly once, in
// ascending order. An empty input yields an empty, non-nil slice.
func DistinctPages(ayat []Ayah) []int {
	seen := make(map[int]struct{}, len(ayat))
	pages := make([]int, 0, len(ayat))
	for _, a := range ayat {
		if _, ok := seen[a.Page]; ok {
			continue
		}
		seen[a.Page] = struct{}{}
		pages = append(pages, a.Page)
	}
	slices.Sort(pages)
	return pages
}

// Batches splits items into consecutive groups of at most size elements.
// A non-positive size returns everything in one group.
func Batches[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return [][]T{}
	}
	if size <= 0 {
		return [][]T{items}
	}
	return slices.Collect(slices.Chunk(items, size))
}

// PageImages maps logical page numbers to image file names. Image files are
// numbered from FirstPageIndex for page 0 because of front matter, and
// zero-padded to Padding digits.
type PageImages struct {
	FirstPageIndex int
	Padding        int
	Prefix         string
	Extension      string
}

// DefaultPageImages matches the "-NNN.png" image set.
var DefaultPageImages = PageImages{
	FirstPageIndex: 2,
	Padding:        3,
	Prefix:         "-",
	Extension:      ".png",
}

// Name returns the image file name for page. It performs no I/O.
func (p PageImages) Name(page int) string {
	return fmt.Sprintf("%s%0*d%s", p.Prefix, p.Padding, p.FirstPageIndex+page, p.Extension)
}
