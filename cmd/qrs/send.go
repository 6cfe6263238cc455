// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"html/template"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"upspin.io/errors"

	"qrs.upspin.io/cmd/qrs/static"
)

const sendHelp = `Send shares text, a file or a directory.

Short text is shown as a QR code directly. Longer text, files and
directories are served over HTTP, and the QR code holds the URL.
Unless -type is given, an INPUT naming an existing path is shared
as a file or directory, after confirmation if -host is not set.
`

// sendConfig holds the flags of the send command.
type sendConfig struct {
	typ      string
	maxLen   int
	host     string
	port     int
	maxConns int
	compact  bool
	input    string
}

func parseSendFlags(args []string) (*sendConfig, error) {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	cfg := &sendConfig{}
	fs.StringVar(&cfg.typ, "type", "", "`type` of stuff to send: text or file")
	fs.IntVar(&cfg.maxLen, "maxlen", 120, "maximum `length` of text shown directly as a QR code")
	fs.StringVar(&cfg.host, "host", "", "`host` to bind (default: choose a network interface)")
	fs.IntVar(&cfg.port, "port", defaultPort, "`port` to bind")
	fs.IntVar(&cfg.maxConns, "maxconns", defaultMaxConns, "maximum `number` of simultaneous connections")
	fs.BoolVar(&cfg.compact, "compact", false, "draw the QR code with half-block characters")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "%s\nUsage: qrs send [flags] INPUT\n", sendHelp)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.E(errors.Invalid, errors.Str("send requires exactly one INPUT argument"))
	}
	switch cfg.typ {
	case "", "text", "file":
	default:
		return nil, errors.E(errors.Invalid, errors.Errorf("unknown -type %q; want text or file", cfg.typ))
	}
	cfg.input = fs.Arg(0)
	return cfg, nil
}

func send(con *console, args []string) error {
	cfg, err := parseSendFlags(args)
	if err != nil {
		return err
	}
	m, err := chooseMode(con, cfg)
	if err != nil {
		return err
	}
	if m == sendText && len(cfg.input) <= cfg.maxLen {
		return printCode(con.out, cfg.input, cfg.compact)
	}
	if m == sendText {
		ok, err := con.confirm("INPUT seems to be too long, sharing via network?")
		if err != nil {
			return err
		}
		if !ok {
			if err := printCode(con.out, cfg.input, cfg.compact); err != nil {
				return err
			}
			fmt.Fprintln(con.out, "you may zoom out the terminal :)")
			return nil
		}
	}

	host, err := bindHost(con, cfg.host)
	if err != nil {
		return err
	}
	addr, hostPort := advertise(host, cfg.port)
	s := &server{
		mode:  m,
		addr:  addr,
		input: cfg.input,
	}
	return listenAndServe(con, s, hostPort, cfg.maxConns, cfg.compact)
}

// chooseMode decides whether cfg.input is shared as text, a file or a
// directory.
func chooseMode(con *console, cfg *sendConfig) (mode, error) {
	switch cfg.typ {
	case "text":
		return sendText, nil
	case "file":
		fi, err := os.Stat(cfg.input)
		if err != nil {
			return sendText, errors.E(errors.Op("send"), errors.NotExist, err)
		}
		return fileMode(fi), nil
	}
	fi, err := os.Stat(cfg.input)
	if err != nil {
		return sendText, nil
	}
	if cfg.host != "" {
		return fileMode(fi), nil
	}
	ok, err := con.confirm("INPUT seems to be a path, share as file(s)?")
	if err != nil {
		return sendText, err
	}
	if !ok {
		return sendText, nil
	}
	return fileMode(fi), nil
}

func fileMode(fi os.FileInfo) mode {
	if fi.IsDir() {
		return sendDir
	}
	return sendFile
}

func (s *server) serveText(w http.ResponseWriter, r *http.Request) {
	if !s.checkGet(w, r) {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(s.input))
}

func (s *server) serveFile(w http.ResponseWriter, r *http.Request) {
	if !s.checkGet(w, r) {
		return
	}
	s.serveLocal(w, r, s.input)
}

func (s *server) serveDir(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" && r.Method != "HEAD" {
		http.Error(w, "Expected GET request", http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Path == "/" {
		s.serveList(w, r)
		return
	}
	name := r.URL.Path[1:]
	if !validEntryName(name) {
		httpError(w, errors.E(errors.NotExist, errors.Errorf("no entry %q", name)))
		return
	}
	s.serveLocal(w, r, filepath.Join(s.input, name))
}

// validEntryName reports whether name refers to an entry directly inside
// the shared directory.
func validEntryName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

// serveLocal writes the regular file at path as a download.
func (s *server) serveLocal(w http.ResponseWriter, r *http.Request, path string) {
	f, err := os.Open(path)
	if err != nil {
		httpError(w, localError(err))
		return
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		httpError(w, localError(err))
		return
	}
	if fi.IsDir() {
		httpError(w, errors.E(errors.IsDir, errors.Errorf("%s is a directory", fi.Name())))
		return
	}
	name := filepath.Base(path)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	logf("sending %s (%s) to %s", path, humanize.Bytes(uint64(fi.Size())), r.RemoteAddr)
	http.ServeContent(w, r, name, fi.ModTime(), f)
}

// localError classifies an error from the local file system.
func localError(err error) error {
	switch {
	case os.IsNotExist(err):
		return errors.E(errors.NotExist, err)
	case os.IsPermission(err):
		return errors.E(errors.Permission, err)
	}
	return errors.E(errors.IO, err)
}

// listEntry is a file in a directory listing.
type listEntry struct {
	Name string
	URL  string
	Size string
}

var listTemplate = template.Must(template.New("dir").Parse(mustAsset("dir.html")))

func mustAsset(name string) string {
	s, err := static.File(name)
	if err != nil {
		panic(err)
	}
	return s
}

// serveList writes an HTML page linking every regular file in the shared
// directory.
func (s *server) serveList(w http.ResponseWriter, r *http.Request) {
	des, err := os.ReadDir(s.input)
	if err != nil {
		httpError(w, localError(err))
		return
	}
	var files []listEntry
	for _, de := range des {
		if !de.Type().IsRegular() {
			continue
		}
		fi, err := de.Info()
		if err != nil {
			continue
		}
		files = append(files, listEntry{
			Name: de.Name(),
			URL:  s.addr + url.PathEscape(de.Name()),
			Size: humanize.Bytes(uint64(fi.Size())),
		})
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = listTemplate.Execute(w, struct {
		Dir   string
		Files []listEntry
	}{filepath.Base(s.input), files})
	if err != nil {
		logf("listing %s: %v", s.input, err)
	}
}

// checkGet reports whether r is a GET or HEAD request for the root,
// and writes an error response if not.
func (s *server) checkGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != "GET" && r.Method != "HEAD" {
		http.Error(w, "Expected GET request", http.StatusMethodNotAllowed)
		return false
	}
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return false
	}
	return true
}
