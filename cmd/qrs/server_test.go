// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrs.upspin.io/upload"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
	return w
}

func TestServeText(t *testing.T) {
	s := &server{mode: sendText, addr: "http://example/", input: "hello, world"}
	w := get(t, s, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello, world", w.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusNotFound, get(t, s, "/other").Code)

	w = httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest("POST", "/", strings.NewReader("x")))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0644))

	s := &server{mode: sendFile, addr: "http://example/", input: path}
	w := get(t, s, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.4", w.Body.String())
	assert.Equal(t, `attachment; filename=report.pdf`, w.Header().Get("Content-Disposition"))

	s.input = filepath.Join(filepath.Dir(path), "gone.pdf")
	assert.Equal(t, http.StatusNotFound, get(t, s, "/").Code)
}

func TestServeDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("alpha"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b c.txt"), []byte("bravo"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "secret"), []byte("s"), 0644))

	s := &server{mode: sendDir, addr: "http://192.168.1.5:4141/", input: dir}
	w := get(t, s, "/")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `href="http://192.168.1.5:4141/a.txt"`)
	assert.Contains(t, body, `href="http://192.168.1.5:4141/b%20c.txt"`)
	assert.NotContains(t, body, "sub")

	w = get(t, s, "/a.txt")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alpha", w.Body.String())

	w = get(t, s, "/b%20c.txt")
	assert.Equal(t, "bravo", w.Body.String())

	for _, p := range []string{"/sub", "/sub/secret", "/..%2fescape", "/missing"} {
		assert.Equal(t, http.StatusNotFound, get(t, s, p).Code, p)
	}
}

func TestValidEntryName(t *testing.T) {
	for _, name := range []string{"a.txt", "..hidden", "x y"} {
		assert.True(t, validEntryName(name), name)
	}
	for _, name := range []string{"", ".", "..", "a/b", `a\b`, "../x"} {
		assert.False(t, validEntryName(name), name)
	}
}

func newTestReceiver(t *testing.T, xsrf bool) (*server, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	var out bytes.Buffer
	con := newConsole(strings.NewReader(""), &out)
	s, err := newReceiveServer(&receiveConfig{dir: dir, eol: "crlf", xsrf: xsrf}, con)
	require.NoError(t, err)
	s.addr = "http://example/"
	return s, &out, dir
}

func fileRequest(t *testing.T, target, name string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	r := httptest.NewRequest("POST", target, &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestReceivePage(t *testing.T) {
	s, _, _ := newTestReceiver(t, false)
	w := get(t, s, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/file"`)
	assert.Contains(t, w.Body.String(), `action="/text"`)
	assert.Contains(t, w.Body.String(), `name="file"`)
}

func TestReceiveText(t *testing.T) {
	s, out, _ := newTestReceiver(t, false)
	r := httptest.NewRequest("POST", "/text", strings.NewReader(url.Values{"text": {"a long message"}}.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "done!", w.Body.String())
	assert.Equal(t, "================\na long message\n================\n", out.String())
}

func TestReceiveFile(t *testing.T) {
	s, out, dir := newTestReceiver(t, false)
	content := bytes.Repeat([]byte("0123456789abcdef"), 5000)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		s.ServeHTTP(w, fileRequest(t, "/file", "photo.jpg", content))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "done!", w.Body.String())
	}
	for _, name := range []string{"photo.jpg", "photo.jpg.1"} {
		got, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, content, got)
	}
	assert.Contains(t, out.String(), "Received "+filepath.Join(dir, "photo.jpg"))
}

func TestReceiveFileErrors(t *testing.T) {
	s, _, dir := newTestReceiver(t, false)

	// No boundary.
	r := httptest.NewRequest("POST", "/file", strings.NewReader("junk"))
	r.Header.Set("Content-Type", "multipart/form-data")
	w := httptest.NewRecorder()
	s.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Content-Length too small for the trailer.
	r = fileRequest(t, "/file", "x.bin", []byte("payload"))
	body, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	hdr := bytes.Index(body, []byte("\r\n\r\n")) + 4
	r = httptest.NewRequest("POST", "/file", bytes.NewReader(body[:hdr+1]))
	r.Header.Set("Content-Type", "multipart/form-data; boundary="+boundaryOf(t, body))
	w = httptest.NewRecorder()
	s.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	des, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, des)

	w = get(t, s, "/file")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, http.StatusNotFound, get(t, s, "/elsewhere").Code)
}

// boundaryOf returns the boundary of a body written by multipart.Writer.
func boundaryOf(t *testing.T, body []byte) string {
	t.Helper()
	line := body[:bytes.Index(body, []byte("\r\n"))]
	return string(bytes.TrimPrefix(line, []byte("--")))
}

var actionRE = regexp.MustCompile(`action="(/file\?token=[^"]+)"`)

func TestReceiveXSRF(t *testing.T) {
	s, _, dir := newTestReceiver(t, true)
	require.NotEmpty(t, s.key)

	w := httptest.NewRecorder()
	s.ServeHTTP(w, fileRequest(t, "/file", "a.txt", []byte("a")))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	s.ServeHTTP(w, fileRequest(t, "/file?token=bogus", "a.txt", []byte("a")))
	assert.Equal(t, http.StatusForbidden, w.Code)

	page := get(t, s, "/").Body.String()
	m := actionRE.FindStringSubmatch(page)
	require.Len(t, m, 2, page)
	action := strings.ReplaceAll(m[1], "&amp;", "&")

	w = httptest.NewRecorder()
	s.ServeHTTP(w, fileRequest(t, action, "a.txt", []byte("a")))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, err := os.Stat(filepath.Join(dir, "a.txt"))
	assert.NoError(t, err)
}

func TestNewReceiveServerErrors(t *testing.T) {
	con := newConsole(strings.NewReader(""), &bytes.Buffer{})
	_, err := newReceiveServer(&receiveConfig{dir: filepath.Join(t.TempDir(), "missing"), eol: "crlf"}, con)
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = newReceiveServer(&receiveConfig{dir: file, eol: "crlf"}, con)
	assert.Error(t, err)

	_, err = newReceiveServer(&receiveConfig{dir: t.TempDir(), eol: "cr"}, con)
	assert.Error(t, err)

	s, err := newReceiveServer(&receiveConfig{dir: t.TempDir(), eol: "lf"}, con)
	require.NoError(t, err)
	assert.IsType(t, &upload.Receiver{}, s.recv)
}
