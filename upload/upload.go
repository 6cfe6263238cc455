// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package upload implements a streaming receiver for single-file
// multipart/form-data request bodies.
//
// The body is never buffered as a whole. The part header is scanned line by
// line, the length of the file content is derived from the declared
// Content-Length, and exactly that many bytes are copied to a newly created
// file whose name does not collide with any existing file.
package upload // import "qrs.upspin.io/upload"

import (
	"bufio"
	"io"
	"path/filepath"
	"strings"

	"upspin.io/errors"
	"upspin.io/log"
)

// DefaultChunkSize is the size of the buffer used to copy file content.
const DefaultChunkSize = 32 * 1024

// DefaultMaxHeaderBytes bounds the size of a part header.
const DefaultMaxHeaderBytes = 64 * 1024

// Options configures a Receiver.
type Options struct {
	// Dir is the directory in which received files are created.
	// The empty string means the current directory.
	Dir string

	// ChunkSize is the copy buffer size. Zero means DefaultChunkSize.
	ChunkSize int

	// Ending is the line terminator convention of the body.
	// The zero value means CRLF.
	Ending LineEnding

	// MaxHeaderBytes bounds the part header. Zero means
	// DefaultMaxHeaderBytes; a negative value disables the limit.
	MaxHeaderBytes int64
}

// Result describes a received file.
type Result struct {
	Path string // Where the file was written.
	Size int64  // Number of content bytes written.
}

// Receiver saves uploaded files. It holds no per-request state and may be
// used by concurrent requests.
type Receiver struct {
	opts Options
}

// NewReceiver returns a Receiver for the given options.
func NewReceiver(opts Options) *Receiver {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Ending == "" {
		opts.Ending = CRLF
	}
	if opts.MaxHeaderBytes == 0 {
		opts.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	return &Receiver{opts: opts}
}

// Receive reads one multipart/form-data body holding a single file part and
// saves the file content. The contentLength and contentType arguments are the
// values of the request's Content-Length and Content-Type headers; a negative
// contentLength means the header was absent.
//
// Protocol violations are reported before any file is created. If an I/O
// error occurs while copying, the partially written file is left in place.
func (r *Receiver) Receive(body io.Reader, contentLength int64, contentType string) (Result, error) {
	const op errors.Op = "upload.Receive"
	if contentLength < 0 {
		return Result{}, errors.E(op, errors.Invalid, errors.Str("missing Content-Length"))
	}
	boundary, err := Boundary(contentType)
	if err != nil {
		return Result{}, errors.E(op, err)
	}

	br := bufio.NewReaderSize(body, r.opts.ChunkSize)
	hdr, err := ScanHeader(br, r.opts.Ending, r.opts.MaxHeaderBytes)
	if err != nil {
		return Result{}, errors.E(op, err)
	}
	n, err := PayloadLength(contentLength, hdr.Consumed, boundary, r.opts.Ending)
	if err != nil {
		return Result{}, errors.E(op, err)
	}
	log.Debug.Printf("%s: filename %q, header %d bytes, payload %d bytes", op, hdr.Filename, hdr.Consumed, n)

	path, err := r.outputPath(hdr.Filename)
	if err != nil {
		return Result{}, errors.E(op, err)
	}
	f, path, err := Create(path)
	if err != nil {
		return Result{}, errors.E(op, err)
	}
	written, err := CopyBounded(f, br, n, make([]byte, r.opts.ChunkSize))
	if cerr := f.Close(); err == nil && cerr != nil {
		err = errors.E(errors.IO, cerr)
	}
	if err != nil {
		return Result{Path: path, Size: written}, errors.E(op, err)
	}

	// Whatever follows is the closing boundary.
	io.CopyN(io.Discard, br, r.opts.Ending.Overhead(boundary))
	return Result{Path: path, Size: written}, nil
}

// outputPath returns the path at which a file with the given uploaded name
// should first be attempted. Directory elements in the name are dropped.
// An empty name yields the empty path.
func (r *Receiver) outputPath(name string) (string, error) {
	if name == "" {
		return "", nil
	}
	name = filepath.Base(filepath.FromSlash(strings.ReplaceAll(name, `\`, "/")))
	switch name {
	case ".", "..", string(filepath.Separator):
		return "", errors.E(errors.Invalid, errors.Errorf("invalid filename %q", name))
	}
	return filepath.Join(r.opts.Dir, name), nil
}

// Boundary returns the multipart boundary token of a Content-Type value:
// the text after the last "boundary=", without surrounding quotes.
func Boundary(contentType string) (string, error) {
	const op errors.Op = "upload.Boundary"
	const key = "boundary="
	i := strings.LastIndex(contentType, key)
	if i < 0 {
		return "", errors.E(op, errors.Invalid, errors.Errorf("no boundary in Content-Type %q", contentType))
	}
	b := contentType[i+len(key):]
	if j := strings.IndexByte(b, ';'); j >= 0 {
		b = b[:j]
	}
	b = strings.TrimSpace(b)
	if len(b) >= 2 && b[0] == '"' && b[len(b)-1] == '"' {
		b = b[1 : len(b)-1]
	}
	if b == "" {
		return "", errors.E(op, errors.Invalid, errors.Str("empty boundary"))
	}
	return b, nil
}
