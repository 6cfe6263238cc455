// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package upload

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upspin.io/errors"
)

func TestDispositionFilename(t *testing.T) {
	tests := []struct {
		line, want string
	}{
		{"Content-Disposition: form-data; name=\"file\"; filename=\"a.png\"\r\n", "a.png"},
		{"Content-Disposition: form-data; filename=\"a.png\"; name=\"file\"\r\n", "a.png"},
		{"Content-Disposition: form-data; name=\"file\"; FileName=\"Quarterly Report.pdf\"\r\n", "Quarterly Report.pdf"},
		{"Content-Disposition: form-data; name=\"file\"; filename=\"semi;colon.txt\"\r\n", "semi;colon.txt"},
		{"Content-Disposition: form-data; name=\"file\"; filename=\"say \\\"hi\\\".txt\"\r\n", `say "hi".txt`},
		{"Content-Disposition: form-data; name=\"file\"; filename=\"\"\r\n", ""},
		{"Content-Disposition: form-data; name=\"file\"\r\n", ""},
		{"Content-Disposition: form-data; name=\"file\"; filename=\"unix.txt\"\n", "unix.txt"},
	}
	for _, tt := range tests {
		got, err := dispositionFilename(tt.line)
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}

	_, err := dispositionFilename("Content-Disposition: form-data; name=file; filename=a.png\r\n")
	assert.True(t, errors.Match(errors.E(errors.Invalid), err), "got %v", err)
}

func TestScanHeader(t *testing.T) {
	head := "--" + testBoundary + "\r\n" +
		"Content-Disposition: form-data; name=\"file\"; filename=\"rust.logo\"\r\n" +
		"Content-Type: image/jpeg\r\n" +
		"\r\n"
	r := bufio.NewReader(strings.NewReader(head + "CONTENT"))
	h, err := ScanHeader(r, CRLF, 0)
	require.NoError(t, err)
	assert.Equal(t, "rust.logo", h.Filename)
	assert.Equal(t, int64(len(head)), h.Consumed)

	// The reader is positioned at the first content byte.
	rest, err := r.ReadString(0)
	assert.Equal(t, "CONTENT", rest)
	assert.Error(t, err)
}

func TestScanHeaderNoDisposition(t *testing.T) {
	head := "--b\r\nContent-Type: text/plain\r\n\r\n"
	h, err := ScanHeader(bufio.NewReader(strings.NewReader(head)), CRLF, 0)
	require.NoError(t, err)
	assert.Equal(t, "", h.Filename)
	assert.Equal(t, int64(len(head)), h.Consumed)
}

func TestScanHeaderLongLine(t *testing.T) {
	// A line longer than the bufio buffer is read in fragments.
	long := "X-Long: " + strings.Repeat("y", 100) + "\r\n"
	head := "--b\r\n" + long + "Content-Disposition: form-data; name=\"file\"; filename=\"f\"\r\n\r\n"
	h, err := ScanHeader(bufio.NewReaderSize(strings.NewReader(head), 16), CRLF, 0)
	require.NoError(t, err)
	assert.Equal(t, "f", h.Filename)
	assert.Equal(t, int64(len(head)), h.Consumed)
}

func TestScanHeaderLimit(t *testing.T) {
	head := "--b\r\nContent-Type: text/plain\r\n\r\n"
	_, err := ScanHeader(bufio.NewReader(strings.NewReader(head)), CRLF, int64(len(head)))
	require.NoError(t, err)
	_, err = ScanHeader(bufio.NewReader(strings.NewReader(head)), CRLF, int64(len(head)-1))
	assert.True(t, errors.Match(errors.E(errors.Invalid), err), "got %v", err)
}
