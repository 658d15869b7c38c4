package utils

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"
)

// MaxManuscriptBytes caps manuscript and revision uploads.
const MaxManuscriptBytes = 10 << 20

const PDFMimeType = "application/pdf"

var (
	ErrEmptyFile   = errors.New("file is empty")
	ErrNotPDF      = errors.New("only PDF files are accepted")
	ErrFileTooBig  = errors.New("file exceeds the 10MB limit")
	pageObjectRe   = regexp.MustCompile(`/Type\s*/Page[^s]`)
	pageTreeCounts = regexp.MustCompile(`/Type\s*/Pages\b[^>]*?/Count\s+(\d+)|/Count\s+(\d+)[^>]*?/Type\s*/Pages\b`)
)

// PDFInfo is what the service keeps about an uploaded document.
type PDFInfo struct {
	MimeType string
	Size     int64
	Pages    int
	Checksum string
}

// InspectPDF checks that data is a PDF within the size limit and extracts
// the page count and a content checksum.
func InspectPDF(data []byte) (PDFInfo, error) {
	if len(data) == 0 {
		return PDFInfo{}, ErrEmptyFile
	}
	if len(data) > MaxManuscriptBytes {
		return PDFInfo{}, ErrFileTooBig
	}
	mt := mimetype.Detect(data)
	if !mt.Is(PDFMimeType) {
		return PDFInfo{}, ErrNotPDF
	}
	return PDFInfo{
		MimeType: PDFMimeType,
		Size:     int64(len(data)),
		Pages:    CountPDFPages(data),
		Checksum: fmt.Sprintf("%016x", xxh3.Hash(data)),
	}, nil
}

// CountPDFPages reads the page tree /Count when present and falls back to
// counting page objects. Compressed object streams hide both, in which case
// the result is 0.
func CountPDFPages(data []byte) int {
	best := 0
	for _, m := range pageTreeCounts.FindAllSubmatch(data, -1) {
		raw := m[1]
		if len(raw) == 0 {
			raw = m[2]
		}
		if n, err := strconv.Atoi(string(raw)); err == nil && n > best {
			best = n
		}
	}
	if best > 0 {
		return best
	}
	return len(pageObjectRe.FindAllIndex(bytes.TrimSpace(data), -1))
}
