// Package pdftext recovers text runs from simple PDF bulletins. It is
// not a PDF renderer: it locates content streams, tries the common
// decompression filters, and decodes the string arguments of Tj/TJ show
// operators in document order. Anything it cannot make sense of is
// skipped rather than reported.
package pdftext

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"encoding/hex"
	"io"
	"regexp"
	"strings"
	"unicode/utf16"
)

var (
	streamRe  = regexp.MustCompile(`(?s)stream\r?\n(.*?)endstream`)
	arrayRe   = regexp.MustCompile(`(?s)\[(.*?)\]\s*TJ`)
	hexShowRe = regexp.MustCompile(`(?s)<([0-9A-Fa-f\s]+)>\s*T[Jj]`)
	literalRe = regexp.MustCompile(`(?s)(\((?:\\.|[^\\)])*\))\s*T[Jj]`)
	litPartRe = regexp.MustCompile(`(?s)\((?:\\.|[^\\)])*\)`)
	hexPartRe = regexp.MustCompile(`(?s)<([0-9A-Fa-f\s]+)>`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

// Extract decodes every text chunk it can find in a PDF binary and joins
// them with newlines in document order. An unreadable binary yields an
// empty string, never an error.
func Extract(binary []byte) string {
	if len(binary) == 0 {
		return ""
	}

	var lines []string
	for _, m := range streamRe.FindAllSubmatch(binary, -1) {
		decoded := decodeStream(m[1])
		if len(decoded) == 0 {
			continue
		}
		for _, chunk := range textChunks(decoded) {
			chunk = normalizeEncoding(chunk)
			chunk = strings.ReplaceAll(chunk, "\r", "")
			chunk = strings.TrimSpace(chunk)
			if chunk == "" {
				continue
			}
			lines = append(lines, chunk)
		}
	}
	return strings.Join(lines, "\n")
}

// decodeStream tries the filters a bulletin stream plausibly uses; the
// first one that decodes wins, and an unfiltered stream passes through.
func decodeStream(stream []byte) []byte {
	stream = bytes.TrimLeft(stream, "\r\n")
	if len(stream) == 0 {
		return nil
	}
	for _, inflate := range []func([]byte) ([]byte, error){inflateZlib, inflateGzip, inflateRaw} {
		if out, err := inflate(stream); err == nil {
			return out
		}
	}
	return stream
}

func inflateZlib(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func inflateGzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func inflateRaw(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	return io.ReadAll(r)
}

// textChunks pulls show-operator arguments out of one decoded content
// stream. Array shows are consumed first so their inner literals are not
// re-matched by the plain Tj patterns.
func textChunks(content []byte) []string {
	var chunks []string

	for _, m := range arrayRe.FindAllSubmatch(content, -1) {
		chunks = append(chunks, decodeArrayChunk(m[1]))
	}
	content = arrayRe.ReplaceAll(content, nil)

	for _, m := range hexShowRe.FindAllSubmatch(content, -1) {
		chunks = append(chunks, decodeHexString(string(m[1])))
	}
	content = hexShowRe.ReplaceAll(content, nil)

	for _, m := range literalRe.FindAllSubmatch(content, -1) {
		chunks = append(chunks, decodeLiteralString(string(m[1])))
	}

	out := chunks[:0]
	for _, chunk := range chunks {
		if chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}

func decodeArrayChunk(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}
	var b strings.Builder
	for _, literal := range litPartRe.FindAll(payload, -1) {
		b.WriteString(decodeLiteralString(string(literal)))
	}
	for _, m := range hexPartRe.FindAllSubmatch(payload, -1) {
		b.WriteString(decodeHexString(string(m[1])))
	}
	return strings.TrimSpace(b.String())
}

// decodeLiteralString decodes a parenthesized PDF literal string,
// including backslash escapes and up-to-3-digit octal codes.
func decodeLiteralString(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	if token[0] == '(' {
		token = token[1 : len(token)-1]
	}

	var b strings.Builder
	for i := 0; i < len(token); i++ {
		c := token[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(token) {
			break
		}
		switch next := token[i]; next {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case '(', ')', '\\':
			b.WriteByte(next)
		default:
			if next >= '0' && next <= '9' {
				oct := int(next - '0')
				for j := 0; j < 2 && i+1 < len(token); j++ {
					d := token[i+1]
					if d < '0' || d > '9' {
						break
					}
					i++
					oct = oct*8 + int(d-'0')
				}
				b.WriteByte(byte(oct))
			} else {
				b.WriteByte(next)
			}
		}
	}
	return b.String()
}

// decodeHexString decodes a PDF hex string; an odd-length string is
// zero-padded per the spec.
func decodeHexString(raw string) string {
	cleaned := spaceRe.ReplaceAllString(raw, "")
	if cleaned == "" {
		return ""
	}
	if len(cleaned)%2 == 1 {
		cleaned += "0"
	}
	decoded, err := hex.DecodeString(cleaned)
	if err != nil {
		return ""
	}
	return string(decoded)
}

// normalizeEncoding converts a UTF-16BE chunk (identified by its BOM)
// to UTF-8; everything else passes through unchanged.
func normalizeEncoding(text string) string {
	if !strings.HasPrefix(text, "\xFE\xFF") {
		return text
	}
	raw := []byte(text[2:])
	if len(raw)%2 == 1 {
		raw = raw[:len(raw)-1]
	}
	units := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		units = append(units, uint16(raw[i])<<8|uint16(raw[i+1]))
	}
	return string(utf16.Decode(units))
}
