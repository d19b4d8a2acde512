// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fsext

import (
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding is a detected text encoding.
type Encoding string

const (
	EncodingUTF8       Encoding = "UTF-8"
	EncodingUTF16LE    Encoding = "UTF-16LE"
	EncodingUTF16BE    Encoding = "UTF-16BE"
	EncodingWindows1252 Encoding = "Windows-1252"
	EncodingISO88592   Encoding = "ISO-8859-2"
)

// OtherEncoding builds the Encoding value for a fallback codec not covered
// by the named constants.
func OtherEncoding(name string) Encoding { return Encoding("Other(" + name + ")") }

// LineEnding is a detected line terminator style.
type LineEnding string

const (
	LineEndingLF   LineEnding = "LF"
	LineEndingCRLF LineEnding = "CRLF"
	LineEndingCR   LineEnding = "CR"
)

// FileFormat is the detected encoding/line-ending pair for one file,
// cached per resolved absolute path and reapplied on write.
type FileFormat struct {
	Encoding   Encoding
	LineEnding LineEnding
}

// DetectFormat inspects raw file bytes and returns the detected
// FileFormat plus the content decoded and normalized to LF with trailing
// per-line whitespace stripped (no forced trailing newline).
func DetectFormat(raw []byte) (FileFormat, string) {
	enc, decoded := detectEncoding(raw)
	le, normalized := detectAndNormalizeLineEndings(decoded)
	return FileFormat{Encoding: enc, LineEnding: le}, normalized
}

func detectEncoding(raw []byte) (Encoding, string) {
	switch {
	case len(raw) >= 3 && raw[0] == 0xEF && raw[1] == 0xBB && raw[2] == 0xBF:
		return EncodingUTF8, string(raw[3:])
	case len(raw) >= 2 && raw[0] == 0xFF && raw[1] == 0xFE:
		return decodeWith(EncodingUTF16LE, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), raw)
	case len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF:
		return decodeWith(EncodingUTF16BE, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), raw)
	case len(raw) == 0:
		return EncodingUTF8, ""
	}

	if utf8.Valid(raw) {
		return EncodingUTF8, string(raw)
	}

	// Fallback decode list: try cp1252 then latin2 before giving up and
	// treating the bytes as UTF-8 with replacement characters.
	if s, ok := tryDecode(charmap.Windows1252, raw); ok {
		return EncodingWindows1252, s
	}
	if s, ok := tryDecode(charmap.ISO8859_2, raw); ok {
		return EncodingISO88592, s
	}
	return EncodingUTF8, string(raw)
}

// decodeWith decodes raw (BOM included) with enc; if decoding fails the
// bytes are returned as-is under the same encoding name.
func decodeWith(name Encoding, enc encoding.Encoding, raw []byte) (Encoding, string) {
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return name, string(raw)
	}
	return name, string(decoded)
}

func tryDecode(cm *charmap.Charmap, raw []byte) (string, bool) {
	var b strings.Builder
	for _, by := range raw {
		r := cm.DecodeByte(by)
		if r == utf8.RuneError {
			return "", false
		}
		b.WriteRune(r)
	}
	return b.String(), true
}

func detectAndNormalizeLineEndings(s string) (LineEnding, string) {
	var le LineEnding
	switch {
	case strings.Contains(s, "\r\n"):
		le = LineEndingCRLF
		s = strings.ReplaceAll(s, "\r\n", "\n")
	case strings.Contains(s, "\r"):
		le = LineEndingCR
		s = strings.ReplaceAll(s, "\r", "\n")
	default:
		le = LineEndingLF
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return le, strings.Join(lines, "\n")
}

// Restore reverses normalization: it converts LF line endings back to the
// format's native style and guarantees the result ends with exactly one
// terminal newline in that style.
func Restore(format FileFormat, normalized string) []byte {
	s := strings.TrimRight(normalized, "\n")
	var term string
	switch format.LineEnding {
	case LineEndingCRLF:
		s = strings.ReplaceAll(s, "\n", "\r\n")
		term = "\r\n"
	case LineEndingCR:
		s = strings.ReplaceAll(s, "\n", "\r")
		term = "\r"
	default:
		term = "\n"
	}
	return []byte(s + term)
}

// FormatCache caches FileFormat detections per resolved absolute path.
// Readers take shared access; writers (on first detection) take exclusive
// access, per the reader-writer discipline required of C1.
type FormatCache struct {
	mu    sync.RWMutex
	cache map[string]FileFormat
}

// NewFormatCache constructs an empty cache.
func NewFormatCache() *FormatCache {
	return &FormatCache{cache: make(map[string]FileFormat)}
}

// Get returns the cached format for path, if any.
func (c *FormatCache) Get(path string) (FileFormat, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.cache[path]
	return f, ok
}

// Set records the format for path.
func (c *FormatCache) Set(path string, f FileFormat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[path] = f
}

// Forget drops any cached format for path (e.g. after deletion).
func (c *FormatCache) Forget(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, path)
}
