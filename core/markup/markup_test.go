package markup

import (
	"bytes"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	qerrors "github.com/FocuswithJustin/JuniperQuran/core/errors"
	"github.com/FocuswithJustin/JuniperQuran/internal/validation"
)

func collect(t *testing.T, src Source) ([]Event, error) {
	t.Helper()
	var events []Event
	for {
		ev, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return events, nil
			}
			return events, err
		}
		events = append(events, ev)
	}
}

func TestDecoderEvents(t *testing.T) {
	doc := `<?xml version="1.0"?><!-- c --><sura index="1"><aya index="2">نص</aya></sura>`
	events, err := collect(t, NewStringDecoder("test", doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []struct {
		kind Kind
		name string
		text string
	}{
		{StartElement, "sura", ""},
		{StartElement, "aya", ""},
		{Text, "", "نص"},
		{EndElement, "aya", ""},
		{EndElement, "sura", ""},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(events), len(want), events)
	}
	for i, w := range want {
		ev := events[i]
		if ev.Kind != w.kind || ev.Name != w.name || ev.Text != w.text {
			t.Errorf("event %d = %+v, want %+v", i, ev, w)
		}
	}

	if v, ok := events[0].Attr("index"); !ok || v != "1" {
		t.Errorf("sura index = %q, %v", v, ok)
	}
	if _, ok := events[0].Attr("missing"); ok {
		t.Error("unexpected attribute")
	}
}

func TestDecoderMalformed(t *testing.T) {
	dec := NewStringDecoder("broken.xml", "<ROW>\n<id>1</id>\n</sura>")
	events, err := collect(t, dec)
	if err == nil {
		t.Fatal("expected error")
	}

	var mse *qerrors.MarkupStreamError
	if !errors.As(err, &mse) {
		t.Fatalf("error = %T, want *MarkupStreamError", err)
	}
	if mse.Source != "broken.xml" {
		t.Errorf("Source = %q", mse.Source)
	}
	if mse.Line != 3 {
		t.Errorf("Line = %d, want 3", mse.Line)
	}
	if len(events) == 0 {
		t.Error("events before the error should have been delivered")
	}

	// errors are sticky
	if _, again := dec.Next(); again != err {
		t.Errorf("second Next() = %v, want the same error", again)
	}
}

func TestEventsSource(t *testing.T) {
	boom := errors.New("boom")
	src := &Events{List: []Event{{Kind: StartElement, Name: "a"}}, Err: boom}
	if ev, err := src.Next(); err != nil || ev.Name != "a" {
		t.Fatalf("first Next() = %+v, %v", ev, err)
	}
	if _, err := src.Next(); err != boom {
		t.Errorf("second Next() = %v, want boom", err)
	}

	empty := &Events{}
	if _, err := empty.Next(); err != io.EOF {
		t.Errorf("empty Next() = %v, want io.EOF", err)
	}
}

func TestKindString(t *testing.T) {
	if StartElement.String() != "start" || Text.String() != "text" || EndElement.String() != "end" {
		t.Error("unexpected Kind names")
	}
	if Kind(0).String() != "unknown" {
		t.Error("zero Kind should be unknown")
	}
}

func TestOpenPlainXML(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`<quran><sura index="1"/></quran>`)
	path := filepath.Join(dir, "quran.xml")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if s.Type != validation.FileTypeXML || s.Compressed {
		t.Errorf("Type = %q, Compressed = %v", s.Type, s.Compressed)
	}

	got, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("content = %q", got)
	}

	sum := blake3.Sum256(content)
	fp, err := s.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if fp != hex.EncodeToString(sum[:]) {
		t.Errorf("Fingerprint = %s, want %x", fp, sum)
	}
}

func TestOpenXZ(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`<?xml version="1.0"?><dataroot><ROW><id>1</id></ROW></dataroot>`)

	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("xz.NewWriter failed: %v", err)
	}
	if _, err := w.Write(content); err != nil {
		t.Fatalf("xz write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("xz close failed: %v", err)
	}
	raw := buf.Bytes()

	path := filepath.Join(dir, "quran.xml.xz")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if !s.Compressed || s.Type != validation.FileTypeXML {
		t.Errorf("Type = %q, Compressed = %v", s.Type, s.Compressed)
	}

	// Partial consumption still fingerprints the whole file.
	events, err := collect(t, NewDecoder(path, s))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("no events decoded")
	}

	sum := blake3.Sum256(raw)
	fp, err := s.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if fp != hex.EncodeToString(sum[:]) {
		t.Errorf("Fingerprint = %s, want %x", fp, sum)
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("expected error for empty path")
	}

	_, err := Open(filepath.Join(t.TempDir(), "missing.xml"))
	var ioErr *qerrors.IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("error = %v, want *IOError", err)
	}
}
