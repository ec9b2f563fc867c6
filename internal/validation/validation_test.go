package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"valid relative", "data/quran.xml", nil},
		{"valid absolute", "/srv/quran/tafseer.xml.xz", nil},
		{"arabic name", "data/تفسير.xml", nil},
		{"empty", "", ErrEmptyPath},
		{"null byte", "data/\x00.xml", ErrInvalidCharacter},
		{"control char", "data/\x07.xml", ErrInvalidCharacter},
		{"too long", strings.Repeat("a", MaxPathLength+1), ErrPathTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidatePath(%q) = %v, want nil", tt.path, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePath(%q) = %v, want %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		name     string
		header   []byte
		filename string
		want     FileType
	}{
		{"xz magic", []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00, 0x00}, "quran.xml.xz", FileTypeXZ},
		{"sqlite magic", append([]byte("SQLite format 3\x00"), 0x10, 0x00), "quran.db", FileTypeSQLite},
		{"xml declaration", []byte(`<?xml version="1.0"?><quran/>`), "anything", FileTypeXML},
		{"xml with bom", append([]byte{0xef, 0xbb, 0xbf}, []byte("\n<quran/>")...), "q", FileTypeXML},
		{"plain text", []byte("just words"), "notes.txt", FileTypeUnknown},
		{"empty", nil, "empty.bin", FileTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFileType(tt.header, tt.filename); got != tt.want {
				t.Errorf("DetectFileType() = %q, want %q", got, tt.want)
			}
		})
	}
}
