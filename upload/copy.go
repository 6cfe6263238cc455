// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package upload

import (
	"io"
	"strings"

	"upspin.io/errors"
)

// LineEnding is the line terminator used by a multipart body.
type LineEnding string

// Line terminator conventions.
const (
	CRLF LineEnding = "\r\n"
	LF   LineEnding = "\n"
)

// ParseLineEnding returns the LineEnding named by s, "crlf" or "lf".
func ParseLineEnding(s string) (LineEnding, error) {
	switch strings.ToLower(s) {
	case "crlf":
		return CRLF, nil
	case "lf":
		return LF, nil
	}
	return "", errors.E(errors.Invalid, errors.Errorf("unknown line ending %q", s))
}

// Overhead returns the number of bytes that follow the file content in a
// single-part body with the given boundary: the terminator ending the
// content, the closing "--boundary--" line and its terminator.
func (e LineEnding) Overhead(boundary string) int64 {
	return int64(len(e) + (len(boundary) + 4) + len(e))
}

// PayloadLength returns the number of file content bytes in a body of
// contentLength bytes whose part header took consumed bytes.
// It is an error for the header and trailer to exceed the body.
func PayloadLength(contentLength, consumed int64, boundary string, eol LineEnding) (int64, error) {
	const op errors.Op = "upload.PayloadLength"
	overhead := eol.Overhead(boundary)
	n := contentLength - consumed - overhead
	if n < 0 {
		return 0, errors.E(op, errors.Invalid, errors.Errorf("length mismatch: Content-Length %d is less than header (%d) plus trailer (%d)", contentLength, consumed, overhead))
	}
	return n, nil
}

// CopyBounded copies exactly n bytes from src to dst using buf, which must not
// be empty, as the read buffer. Bytes read beyond the n-th are not written.
// It returns the number of bytes written. If src ends early,
// the error is an IO error holding io.ErrUnexpectedEOF.
func CopyBounded(dst io.Writer, src io.Reader, n int64, buf []byte) (int64, error) {
	const op errors.Op = "upload.CopyBounded"
	var written int64
	for written < n {
		k, rerr := src.Read(buf)
		if k > 0 {
			chunk := buf[:k]
			if rest := n - written; int64(k) > rest {
				chunk = chunk[:rest]
			}
			w, werr := dst.Write(chunk)
			written += int64(w)
			if werr == nil && w < len(chunk) {
				werr = io.ErrShortWrite
			}
			if werr != nil {
				return written, errors.E(op, errors.IO, werr)
			}
		}
		if rerr == io.EOF {
			if written < n {
				return written, errors.E(op, errors.IO, io.ErrUnexpectedEOF)
			}
			break
		}
		if rerr != nil {
			return written, errors.E(op, errors.IO, rerr)
		}
	}
	return written, nil
}
