// Package validation provides input validation for source paths and
// content-type sniffing of corpus source files.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

// Limits.
const (
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrPathTooLong      = errors.New("path too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
)

// ValidatePath performs path validation without requiring a base directory.
// It checks length limits and rejects null bytes and control characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}

	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}

	return nil
}

// FileType represents a detected source file type.
type FileType string

const (
	// FileTypeXZ is an xz-compressed file.
	FileTypeXZ FileType = "xz"
	// FileTypeSQLite is a SQLite 3 database.
	FileTypeSQLite FileType = "sqlite"
	// FileTypeXML is an XML document.
	FileTypeXML FileType = "xml"
	// FileTypeUnknown is anything else.
	FileTypeUnknown FileType = "unknown"
)

// magicBytes defines magic byte signatures for file type detection.
var magicBytes = []struct {
	fileType FileType
	magic    []byte
}{
	{FileTypeXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{FileTypeSQLite, []byte("SQLite format 3\x00")},
}

// DetectFileType classifies a file from its leading bytes, falling back to
// the filename extension for text formats that have no magic signature.
func DetectFileType(header []byte, filename string) FileType {
	if t := detectFileTypeFromMagic(header); t != FileTypeUnknown {
		return t
	}
	if looksLikeXML(header) {
		return FileTypeXML
	}
	if ext := detectFileTypeFromExtension(filename); ext == FileTypeXML && isLikelyText(header) {
		return FileTypeXML
	}
	return FileTypeUnknown
}

func detectFileTypeFromMagic(buf []byte) FileType {
	for _, sig := range magicBytes {
		if bytes.HasPrefix(buf, sig.magic) {
			return sig.fileType
		}
	}
	return FileTypeUnknown
}

func detectFileTypeFromExtension(filename string) FileType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xz":
		return FileTypeXZ
	case ".sqlite", ".db", ".sqlite3":
		return FileTypeSQLite
	case ".xml":
		return FileTypeXML
	default:
		return FileTypeUnknown
	}
}

// looksLikeXML reports whether the first non-blank character, after an
// optional UTF-8 BOM, opens a tag.
func looksLikeXML(buf []byte) bool {
	buf = bytes.TrimPrefix(buf, []byte{0xef, 0xbb, 0xbf})
	buf = bytes.TrimLeft(buf, " \t\r\n")
	return len(buf) > 0 && buf[0] == '<'
}

// isLikelyText checks if the buffer contains likely text content.
func isLikelyText(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}

	if bytes.IndexByte(buf, 0) != -1 {
		return false
	}

	printable := 0
	control := 0
	for _, b := range buf {
		if b >= 0x20 && b <= 0x7e || b == '\t' || b == '\n' || b == '\r' {
			printable++
		} else if b < 0x20 {
			control++
		}
		// UTF-8 lead and continuation bytes are neutral
	}

	return printable > 0 && float64(printable)/float64(printable+control) > 0.95
}
