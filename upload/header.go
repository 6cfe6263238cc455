// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package upload

import (
	"bufio"
	"io"
	"strings"

	"upspin.io/errors"
)

// Header is what ScanHeader learns from a part header.
type Header struct {
	// Filename is the filename attribute of the Content-Disposition
	// line, or empty if there was none.
	Filename string

	// Consumed is the number of body bytes read, including every line
	// terminator and the blank line that ends the header.
	Consumed int64
}

const dispositionPrefix = "Content-Disposition"

// ScanHeader reads lines from r up to and including the first blank line,
// which ends the header of the first part of a multipart body. The opening
// boundary line counts as header material. A maxBytes greater than zero
// bounds the number of bytes read.
//
// Lines starting with Content-Disposition are parsed for a filename
// attribute; all other lines are skipped.
func ScanHeader(r *bufio.Reader, eol LineEnding, maxBytes int64) (Header, error) {
	const op errors.Op = "upload.ScanHeader"
	var h Header
	for {
		line, err := readLine(r, maxBytes-h.Consumed, maxBytes > 0)
		h.Consumed += int64(len(line))
		if err == errLineTooLong {
			return h, errors.E(op, errors.Invalid, errors.Errorf("part header exceeds %d bytes", maxBytes))
		}
		if err == io.EOF {
			return h, errors.E(op, errors.IO, errors.Str("body ended before end of part header"))
		}
		if err != nil {
			return h, errors.E(op, errors.IO, err)
		}
		if line == string(eol) {
			return h, nil
		}
		if strings.HasPrefix(line, dispositionPrefix) {
			name, err := dispositionFilename(line)
			if err != nil {
				return h, errors.E(op, err)
			}
			h.Filename = name
		}
	}
}

var errLineTooLong = errors.Str("line too long")

// readLine returns the next line of r including its '\n' terminator.
// If bounded is set and the line is longer than limit bytes,
// it returns errLineTooLong.
func readLine(r *bufio.Reader, limit int64, bounded bool) (string, error) {
	var b strings.Builder
	for {
		frag, err := r.ReadSlice('\n')
		if bounded && int64(b.Len()+len(frag)) > limit {
			return b.String(), errLineTooLong
		}
		b.Write(frag)
		if err == bufio.ErrBufferFull {
			continue
		}
		return b.String(), err
	}
}

// dispositionFilename returns the filename attribute of a Content-Disposition
// header line.
func dispositionFilename(line string) (string, error) {
	if strings.IndexByte(line, '"') < 0 {
		return "", errors.E(errors.Invalid, errors.Errorf("malformed %s line %q: no quoted value", dispositionPrefix, strings.TrimRight(line, "\r\n")))
	}
	v := line[len(dispositionPrefix):]
	if i := strings.IndexByte(v, ':'); i >= 0 {
		v = v[i+1:]
	}
	return parseParams(strings.TrimRight(v, "\r\n"))["filename"], nil
}

// parseParams parses a header value of the form
//	type; key1=value1; key2="value 2"
// into a map from lower-cased key to value. Quoted values may contain
// semicolons and the escapes \" and \\; any other backslash is kept, as
// some browsers send Windows paths unescaped. Elements without '=' are
// ignored.
func parseParams(v string) map[string]string {
	params := make(map[string]string)
	for _, field := range splitFields(v) {
		i := strings.IndexByte(field, '=')
		if i < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(field[:i]))
		val := strings.TrimSpace(field[i+1:])
		if strings.HasPrefix(val, `"`) {
			val = unquote(val)
		}
		params[key] = val
	}
	return params
}

// splitFields splits v at semicolons that are not inside a quoted string.
func splitFields(v string) []string {
	var (
		fields  []string
		start   int
		quoted  bool
		escaped bool
	)
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case escaped:
			escaped = false
		case quoted && c == '\\':
			escaped = true
		case c == '"':
			quoted = !quoted
		case c == ';' && !quoted:
			fields = append(fields, v[start:i])
			start = i + 1
		}
	}
	return append(fields, v[start:])
}

// unquote returns the contents of the quoted string at the start of s.
// An unterminated string runs to the end of s.
func unquote(s string) string {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			if i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\') {
				i++
			}
			b.WriteByte(s[i])
		case '"':
			return b.String()
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
