// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/valyala/fasttemplate"
	"golang.org/x/net/xsrftoken"

	"upspin.io/errors"
	"upspin.io/log"

	"qrs.upspin.io/cmd/qrs/static"
	"qrs.upspin.io/upload"
)

const receiveHelp = `Receive accepts text or a single file from another device.

Scanning the QR code opens a page with a text form and a file form.
Received text is printed; received files are saved in -dir under
their uploaded name, with a numeric suffix if that name is taken.
`

// maxTextBytes bounds the body of a text submission.
const maxTextBytes = 1 << 20

// receiveConfig holds the flags of the receive command.
type receiveConfig struct {
	host     string
	port     int
	dir      string
	eol      string
	xsrf     bool
	maxConns int
}

func parseReceiveFlags(args []string) (*receiveConfig, error) {
	fs := flag.NewFlagSet("receive", flag.ContinueOnError)
	cfg := &receiveConfig{}
	fs.StringVar(&cfg.host, "host", "", "`host` to bind (default: choose a network interface)")
	fs.IntVar(&cfg.port, "port", defaultPort, "`port` to bind")
	fs.StringVar(&cfg.dir, "dir", ".", "`directory` in which to save received files")
	fs.StringVar(&cfg.eol, "eol", "crlf", "line `ending` of upload bodies: crlf or lf")
	fs.BoolVar(&cfg.xsrf, "xsrf", false, "require the form token issued by the receive page")
	fs.IntVar(&cfg.maxConns, "maxconns", defaultMaxConns, "maximum `number` of simultaneous connections")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "%s\nUsage: qrs receive [flags]\n", receiveHelp)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		fs.Usage()
		return nil, errors.E(errors.Invalid, errors.Str("receive takes no arguments"))
	}
	return cfg, nil
}

func receive(con *console, args []string) error {
	cfg, err := parseReceiveFlags(args)
	if err != nil {
		return err
	}
	s, err := newReceiveServer(cfg, con)
	if err != nil {
		return err
	}
	host, err := bindHost(con, cfg.host)
	if err != nil {
		return err
	}
	var hostPort string
	s.addr, hostPort = advertise(host, cfg.port)
	return listenAndServe(con, s, hostPort, cfg.maxConns, false)
}

// newReceiveServer returns a receiving server for cfg, without an address.
func newReceiveServer(cfg *receiveConfig, con *console) (*server, error) {
	const op errors.Op = "receive"
	fi, err := os.Stat(cfg.dir)
	if err != nil {
		return nil, errors.E(op, localError(err))
	}
	if !fi.IsDir() {
		return nil, errors.E(op, errors.NotDir, errors.Errorf("%s is not a directory", cfg.dir))
	}
	eol, err := upload.ParseLineEnding(cfg.eol)
	if err != nil {
		return nil, errors.E(op, err)
	}
	s := &server{
		mode: receiveMode,
		recv: upload.NewReceiver(upload.Options{Dir: cfg.dir, Ending: eol}),
		out:  con.out,
	}
	if cfg.xsrf {
		if s.key, err = generateKey(); err != nil {
			return nil, errors.E(op, err)
		}
	}
	return s, nil
}

func (s *server) serveReceive(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/":
		if r.Method != "GET" && r.Method != "HEAD" {
			http.Error(w, "Expected GET request", http.StatusMethodNotAllowed)
			return
		}
		s.serveReceivePage(w, r)
	case "/text", "/file":
		if r.Method != "POST" {
			http.Error(w, "Expected POST request", http.StatusMethodNotAllowed)
			return
		}
		// Read the token from the URL only; parsing the form
		// would consume the upload body.
		if s.key != "" && !xsrftoken.Valid(r.URL.Query().Get("token"), s.key, "", r.URL.Path) {
			http.Error(w, "Invalid XSRF token", http.StatusForbidden)
			return
		}
		if r.URL.Path == "/text" {
			s.receiveText(w, r)
		} else {
			s.receiveFile(w, r)
		}
	default:
		http.NotFound(w, r)
	}
}

var receivePage = fasttemplate.New(mustAsset("receive.html"), "{{", "}}")

func (s *server) serveReceivePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	receivePage.Execute(w, map[string]interface{}{
		"text_action": template.HTMLEscapeString(s.action("/text")),
		"file_action": template.HTMLEscapeString(s.action("/file")),
	})
}

// action returns the form action URL for the given path,
// carrying a token if forgery protection is enabled.
func (s *server) action(path string) string {
	if s.key == "" {
		return path
	}
	return path + "?" + url.Values{"token": {xsrftoken.Generate(s.key, "", path)}}.Encode()
}

func (s *server) receiveText(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTextBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Parse error: "+err.Error(), http.StatusBadRequest)
		return
	}
	text := r.PostForm.Get("text")
	fmt.Fprintf(s.out, "================\n%s\n================\n", text)
	logf("received %d bytes of text from %s", len(text), r.RemoteAddr)
	w.Write([]byte("done!"))
}

func (s *server) receiveFile(w http.ResponseWriter, r *http.Request) {
	res, err := s.recv.Receive(r.Body, r.ContentLength, r.Header.Get("Content-Type"))
	if err != nil {
		log.Error.Printf("upload from %s: %v", r.RemoteAddr, err)
		httpError(w, err)
		return
	}
	fmt.Fprintf(s.out, "Received %s (%s)\n", res.Path, humanize.Bytes(uint64(res.Size)))
	logf("received %s (%d bytes) from %s", res.Path, res.Size, r.RemoteAddr)
	w.Write([]byte("done!"))
}
