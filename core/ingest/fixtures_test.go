package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// row is one record of the ROW layout. Empty strings are written as empty
// elements; omitted names in skip are left out entirely.
type row struct {
	id, juz, page, surah, ayah int
	nameEn, nameAr             string
	text, imlaei, tafseer      string
	skip                       []string
}

func (r row) xml() string {
	cols := []struct{ name, value string }{
		{"id", fmt.Sprint(r.id)},
		{"jozz", fmt.Sprint(r.juz)},
		{"page", fmt.Sprint(r.page)},
		{"sura_no", fmt.Sprint(r.surah)},
		{"sura_name_en", r.nameEn},
		{"sura_name_ar", r.nameAr},
		{"line_start", "3"},
		{"line_end", "4"},
		{"aya_no", fmt.Sprint(r.ayah)},
		{"aya_text", r.text},
		{"aya_text_emlaey", r.imlaei},
		{"aya_tafseer", r.tafseer},
	}

	var b strings.Builder
	b.WriteString("  <ROW>\n")
	for _, c := range cols {
		if containsName(r.skip, c.name) {
			continue
		}
		fmt.Fprintf(&b, "    <%s>%s</%s>\n", c.name, c.value, c.name)
	}
	b.WriteString("  </ROW>\n")
	return b.String()
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func fatiha(ayah, id int) row {
	return row{
		id: id, juz: 1, page: 1, surah: 1, ayah: ayah,
		nameEn: "Al-Faatiha", nameAr: "الفَاتِحَة",
		text:    fmt.Sprintf("uthmani %d", ayah),
		imlaei:  fmt.Sprintf("imlaei %d", ayah),
		tafseer: fmt.Sprintf("muyassar 1:%d", ayah),
	}
}

func baqara(ayah, id, page int) row {
	return row{
		id: id, juz: 1, page: page, surah: 2, ayah: ayah,
		nameEn: "Al-Baqara", nameAr: "البَقَرَة",
		text:    fmt.Sprintf("uthmani 2:%d", ayah),
		imlaei:  fmt.Sprintf("imlaei 2:%d", ayah),
		tafseer: fmt.Sprintf("muyassar 2:%d", ayah),
	}
}

func rowsDoc(rows ...row) string {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<DATA_RECORD>\n")
	for _, r := range rows {
		b.WriteString(r.xml())
	}
	b.WriteString("</DATA_RECORD>\n")
	return b.String()
}

// sampleRows is a small, complete primary source.
func sampleRows() string {
	return rowsDoc(
		fatiha(1, 1), fatiha(2, 2),
		baqara(1, 3, 2), baqara(2, 4, 2), baqara(3, 5, 3),
	)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}
