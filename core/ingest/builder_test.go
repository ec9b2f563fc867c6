package ingest

import (
	"errors"
	"slices"
	"testing"

	qerrors "github.com/FocuswithJustin/JuniperQuran/core/errors"
)

// fullBuilder returns a builder with every required field set.
func fullBuilder(t *testing.T) *AyahBuilder {
	t.Helper()
	b := NewAyahBuilder(1)
	for f, v := range map[field]string{
		fieldID:          "8",
		fieldJuz:         "1",
		fieldPage:        "2",
		fieldSurahNo:     "2",
		fieldSurahNameEn: "Al-Baqara",
		fieldSurahNameAr: "البَقَرَة",
		fieldLineStart:   "2",
		fieldLineEnd:     "2",
		fieldAyahNo:      "1",
		fieldText:        "الٓمٓ",
		fieldTextImlaei:  "الم",
	} {
		if err := b.Set(f, v); err != nil {
			t.Fatalf("Set(%s) failed: %v", f, err)
		}
	}
	return b
}

func TestFieldFor(t *testing.T) {
	for f, name := range fieldNames {
		if got := fieldFor(name); got != f {
			t.Errorf("fieldFor(%q) = %v, want %v", name, got, f)
		}
	}
	if got := fieldFor("ROW"); got != fieldNone {
		t.Errorf("fieldFor(ROW) = %v, want none", got)
	}
	if fieldNone.String() != "none" {
		t.Errorf("fieldNone.String() = %q", fieldNone.String())
	}
}

func TestFinalizeComplete(t *testing.T) {
	b := fullBuilder(t)
	if err := b.Set(fieldTafseer, "  تفسير  "); err != nil {
		t.Fatalf("Set(tafseer) failed: %v", err)
	}

	a, err := b.Finalize("ar")
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if a.ID != 8 || a.Surah != 2 || a.Number != 1 || a.Page != 2 {
		t.Errorf("unexpected ayah %+v", a)
	}
	if a.SurahNameAr != "البقرة" {
		t.Errorf("SurahNameAr = %q, want harakat stripped", a.SurahNameAr)
	}
	if text, ok := a.Tafseer("ar"); !ok || text != "تفسير" {
		t.Errorf("Tafseer(ar) = %q, %v", text, ok)
	}
}

func TestFinalizeWithoutTafseer(t *testing.T) {
	a, err := fullBuilder(t).Finalize("ar")
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if langs := a.Languages(); len(langs) != 0 {
		t.Errorf("Languages() = %v, want none", langs)
	}
}

func TestFinalizeIncomplete(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *AyahBuilder
		missing []string
	}{
		{
			name:  "empty builder",
			build: func() *AyahBuilder { return NewAyahBuilder(3) },
			missing: []string{
				"id", "jozz", "page", "sura_no", "sura_name_en", "sura_name_ar",
				"line_start", "line_end", "aya_no", "aya_text", "aya_text_emlaey",
			},
		},
		{
			name: "missing page and aya_no",
			build: func() *AyahBuilder {
				b := NewAyahBuilder(3)
				b.SetID(1)
				b.SetJuz(1)
				b.SetSurahNo(1)
				b.SetSurahNameEn("Al-Faatiha")
				b.SetSurahNameAr("الفاتحة")
				b.SetLineStart(2)
				b.SetLineEnd(2)
				b.SetText("t")
				b.SetTextImlaei("t")
				b.SetTafseer("only the optional one")
				return b
			},
			missing: []string{"page", "aya_no"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := tt.build().Finalize("ar")
			var inc *qerrors.IncompleteRecordError
			if !errors.As(err, &inc) {
				t.Fatalf("error = %v, want IncompleteRecordError", err)
			}
			if !slices.Equal(inc.Missing, tt.missing) {
				t.Errorf("Missing = %v, want %v", inc.Missing, tt.missing)
			}
			if inc.Index != 3 {
				t.Errorf("Index = %d, want 3", inc.Index)
			}
			if !errors.Is(err, qerrors.ErrInvalidInput) {
				t.Error("IncompleteRecordError should match ErrInvalidInput")
			}
			if a.ID != 0 || a.Text != "" {
				t.Errorf("failed Finalize returned a populated ayah: %+v", a)
			}
		})
	}
}

func TestSetParsesIntegers(t *testing.T) {
	b := NewAyahBuilder(1)
	if err := b.Set(fieldPage, " 17 "); err != nil {
		t.Fatalf("Set(page) failed: %v", err)
	}
	if !b.page.ok || b.page.value != 17 {
		t.Errorf("page = %+v", b.page)
	}

	err := b.Set(fieldAyahNo, "seven")
	var ve *qerrors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if ve.Field != "aya_no" || ve.Value != "seven" {
		t.Errorf("ValidationError = %+v", ve)
	}
	if b.ayahNo.ok {
		t.Error("a rejected value must leave the field unset")
	}

	if err := b.Set(fieldNone, "ignored"); err != nil {
		t.Errorf("Set(none) = %v", err)
	}
}
