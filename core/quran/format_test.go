package quran

import (
	"slices"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestDistinctPages(t *testing.T) {
	mk := func(pages ...int) []Ayah {
		var ayat []Ayah
		for i, p := range pages {
			ayat = append(ayat, Ayah{Surah: 1, Number: i + 1, Page: p})
		}
		return ayat
	}

	tests := []struct {
		name string
		ayat []Ayah
		want []int
	}{
		{"empty", nil, []int{}},
		{"single ayah single page", mk(5), []int{5}},
		{"same page", mk(3, 3, 3), []int{3}},
		{"ascending runs", mk(2, 2, 3, 3, 4), []int{2, 3, 4}},
		{"unsorted input", mk(9, 1, 5, 1, 9), []int{1, 5, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistinctPages(tt.ayat)
			if got == nil {
				t.Fatal("DistinctPages returned nil")
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("DistinctPages() = %v, want %v", got, tt.want)
			}
			if len(got) > len(tt.ayat) && len(tt.ayat) > 0 {
				t.Errorf("more pages than ayat")
			}
		})
	}
}

func TestSurahPages(t *testing.T) {
	c := testCorpus(t)
	s, _ := c.Lookup("البقرة")
	if got := s.Pages(); !slices.Equal(got, []int{2, 3}) {
		t.Errorf("Pages() = %v, want [2 3]", got)
	}
}

func TestBatches(t *testing.T) {
	pages := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	got := Batches(pages, PageBatchSize)
	if len(got) != 2 || len(got[0]) != 8 || len(got[1]) != 2 {
		t.Errorf("Batches(10, 8) = %v", got)
	}

	if got := Batches([]int{}, 8); len(got) != 0 {
		t.Errorf("Batches(empty) = %v", got)
	}
	if got := Batches(pages, 0); len(got) != 1 || len(got[0]) != 10 {
		t.Errorf("Batches(size 0) = %v", got)
	}
}

func TestPageImagesName(t *testing.T) {
	tests := []struct {
		page int
		want string
	}{
		{0, "-002.png"},
		{1, "-003.png"},
		{15, "-017.png"},
		{604, "-606.png"},
		{1200, "-1202.png"},
	}

	for _, tt := range tests {
		if got := DefaultPageImages.Name(tt.page); got != tt.want {
			t.Errorf("Name(%d) = %q, want %q", tt.page, got, tt.want)
		}
	}

	custom := PageImages{FirstPageIndex: 0, Padding: 4, Prefix: "page", Extension: ".jpg"}
	if got := custom.Name(7); got != "page0007.jpg" {
		t.Errorf("custom Name(7) = %q", got)
	}
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		limit int
		want  []string
	}{
		{
			name:  "empty input",
			texts: nil,
			limit: 10,
			want:  []string{""},
		},
		{
			name:  "rollover before the text that would reach the limit",
			texts: []string{"ab (1) ", "cd (2) ", "ef (3) "},
			limit: 10,
			want:  []string{"ab (1) ", "cd (2) ", "ef (3) "},
		},
		{
			name:  "fits in one chunk",
			texts: []string{"a ", "b ", "c "},
			limit: 10,
			want:  []string{"a b c "},
		},
		{
			name:  "reaching the limit exactly rolls over",
			texts: []string{"12345", "12345"},
			limit: 10,
			want:  []string{"12345", "12345"},
		},
		{
			name:  "overlong single text stays whole",
			texts: []string{"ab", strings.Repeat("x", 25), "cd"},
			limit: 10,
			want:  []string{"ab", strings.Repeat("x", 25), "cd"},
		},
		{
			name:  "overlong first text",
			texts: []string{strings.Repeat("y", 12)},
			limit: 10,
			want:  []string{strings.Repeat("y", 12)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Chunk(tt.texts, tt.limit)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Chunk() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChunkCountsCharactersNotBytes(t *testing.T) {
	// each Arabic letter is two bytes but one character
	word := strings.Repeat("ب", 4) + " " // 5 characters, 9 bytes
	got := Chunk([]string{word, word, word}, 11)
	if len(got) != 2 {
		t.Fatalf("got %d chunks, want 2: %q", len(got), got)
	}
	if got[0] != word+word {
		t.Errorf("first chunk = %q", got[0])
	}
}

func TestChunkProperties(t *testing.T) {
	var texts []string
	for i := 1; i <= 300; i++ {
		texts = append(texts, FormatAyah(strings.Repeat("ن", i%37+1), i))
	}
	texts = append(texts, FormatAyah(strings.Repeat("م", 2000), 301))

	chunks := Chunk(texts, DefaultChunkLimit)

	if strings.Join(chunks, "") != strings.Join(texts, "") {
		t.Fatal("concatenated chunks do not reproduce the input")
	}
	for i, c := range chunks {
		if c == "" {
			t.Errorf("chunk %d is empty", i)
		}
		if n := utf8.RuneCountInString(c); n >= DefaultChunkLimit && c != texts[len(texts)-1] {
			t.Errorf("chunk %d has %d characters", i, n)
		}
	}
}

func TestFormatting(t *testing.T) {
	if got := FormatAyah("الحمد لله", 2); got != "الحمد لله (2) " {
		t.Errorf("FormatAyah() = %q", got)
	}
	a := Ayah{Number: 255, Text: "الله لا إله إلا هو"}
	if got := FormatVerse(a); got != "الله لا إله إلا هو (255)" {
		t.Errorf("FormatVerse() = %q", got)
	}
}

func TestSurahText(t *testing.T) {
	c := testCorpus(t)
	s, _ := c.Surah(2)
	got := SurahText(s, DefaultChunkLimit)
	want := "imlaei (1) imlaei (2) imlaei (3) "
	if len(got) != 1 || got[0] != want {
		t.Errorf("SurahText() = %q, want [%q]", got, want)
	}
}
