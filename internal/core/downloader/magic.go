package downloader

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DetectFormat reads the first bytes of the file to determine its container.
// Returns the extension (without dot), or empty string if unknown.
func DetectFormat(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	header := make([]byte, 64)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	return detectFormat(header[:n]), nil
}

func detectFormat(header []byte) string {
	n := len(header)
	if n < 4 {
		return ""
	}

	switch {
	// ISO BMFF: ....ftyp<brand>
	case n >= 12 && string(header[4:8]) == "ftyp":
		brand := string(header[8:12])
		switch {
		case strings.HasPrefix(brand, "M4A"), strings.HasPrefix(brand, "M4B"):
			return "m4a"
		case brand == "qt  ":
			return "mov"
		}
		return "mp4"

	// EBML: Matroska or WebM, told apart by the DocType
	case bytes.Equal(header[0:4], []byte{0x1A, 0x45, 0xDF, 0xA3}):
		if bytes.Contains(header, []byte("webm")) {
			return "webm"
		}
		return "mkv"

	case string(header[0:4]) == "OggS":
		return "ogg"

	case string(header[0:4]) == "fLaC":
		return "flac"

	case n >= 12 && string(header[0:4]) == "RIFF" && string(header[8:12]) == "WAVE":
		return "wav"

	case string(header[0:3]) == "ID3":
		return "mp3"

	// MPEG audio frame sync with layer III
	case header[0] == 0xFF && header[1]&0xE0 == 0xE0 && header[1]&0x06 == 0x02:
		return "mp3"

	// ADTS AAC: sync word with layer 00
	case header[0] == 0xFF && header[1]&0xF6 == 0xF0:
		return "aac"
	}

	// HTML error pages are a common failure mode of scraping gateways
	trimmed := bytes.TrimSpace(bytes.ToLower(header))
	if bytes.HasPrefix(trimmed, []byte("<!doctype")) || bytes.HasPrefix(trimmed, []byte("<html")) {
		return "html"
	}
	return ""
}

// RenameByMagicBytes checks if the file's actual type differs from its extension
// and renames it if necessary. Returns the final path (renamed or original).
func RenameByMagicBytes(path string) string {
	detectedExt, err := DetectFormat(path)
	if err != nil || detectedExt == "" || detectedExt == "html" {
		return path
	}

	ext := filepath.Ext(path)
	if strings.EqualFold(strings.TrimPrefix(ext, "."), detectedExt) {
		return path
	}

	newPath := strings.TrimSuffix(path, ext) + "." + detectedExt
	if err := os.Rename(path, newPath); err != nil {
		return path
	}
	return newPath
}
