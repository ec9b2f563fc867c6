package markup

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	qerrors "github.com/FocuswithJustin/JuniperQuran/core/errors"
	"github.com/FocuswithJustin/JuniperQuran/internal/validation"
)

// headerSize is enough to sniff every magic signature we know about.
const headerSize = 512

// Stream is an opened source file. Reads return decompressed content;
// the BLAKE3 fingerprint covers the raw bytes on disk.
type Stream struct {
	Path string
	// Type is the detected type of the decompressed content.
	Type validation.FileType
	// Compressed reports whether the file was xz-compressed.
	Compressed bool

	file   *os.File
	raw    io.Reader
	hasher *blake3.Hasher
	r      io.Reader
}

// Open opens path, sniffs its content type and transparently decompresses
// xz files.
func Open(path string) (*Stream, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, fmt.Errorf("invalid source path: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, qerrors.NewIO("open", path, err)
	}

	s := &Stream{Path: path, file: f, hasher: blake3.New()}
	s.raw = io.TeeReader(f, s.hasher)

	br := bufio.NewReaderSize(s.raw, headerSize)
	header, _ := br.Peek(headerSize)
	s.Type = validation.DetectFileType(header, path)
	s.r = br

	if s.Type == validation.FileTypeXZ {
		zr, err := xz.NewReader(br)
		if err != nil {
			f.Close()
			return nil, qerrors.NewIO("decompress", path, err)
		}
		inner := bufio.NewReaderSize(zr, headerSize)
		header, _ := inner.Peek(headerSize)
		s.Type = validation.DetectFileType(header, trimExt(path))
		s.Compressed = true
		s.r = inner
	}

	return s, nil
}

// Read implements io.Reader over the decompressed content.
func (s *Stream) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

// Fingerprint returns the hex BLAKE3 digest of the raw file. It drains any
// bytes not yet read, so call it once the stream has been consumed.
func (s *Stream) Fingerprint() (string, error) {
	if _, err := io.Copy(io.Discard, s.raw); err != nil {
		return "", qerrors.NewIO("read", s.Path, err)
	}
	return hex.EncodeToString(s.hasher.Sum(nil)), nil
}

// Close closes the underlying file.
func (s *Stream) Close() error {
	return s.file.Close()
}

func trimExt(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}
