// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main // import "qrs.upspin.io/cmd/qrs"

import (
	"crypto/rand"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"

	"golang.org/x/net/netutil"

	"upspin.io/errors"
	"upspin.io/flags"
	"upspin.io/log"
	"upspin.io/shutdown"

	"qrs.upspin.io/qrterm"
	"qrs.upspin.io/upload"
)

const (
	defaultPort     = 4141
	defaultMaxConns = 16
)

const usageText = `Usage: qrs [-log level] [-logfile] <command> [flags] [args]

Commands:
	send [-type text|file] [-maxlen n] [-host h] [-port p] INPUT
		Share text, a file or a directory.
	receive [-host h] [-port p] [-dir d]
		Accept text or a file from another device.

Run "qrs <command> -help" for the flags of a command.
`

func usage() {
	fmt.Fprint(os.Stderr, usageText)
	flag.PrintDefaults()
}

func main() {
	logFile := flag.Bool("logfile", false, "write the log to $HOME/.qrs/log/qrs.log instead of standard error")
	flag.Usage = usage
	flags.Parse(nil, "log")

	if *logFile {
		logToFile()
	}

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	con := newConsole(os.Stdin, os.Stdout)
	var err error
	switch cmd, args := flag.Arg(0), flag.Args()[1:]; cmd {
	case "send":
		err = send(con, args)
	case "receive":
		err = receive(con, args)
	default:
		fmt.Fprintf(os.Stderr, "qrs: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		exit(err)
	}
	shutdown.Now(0)
}

func exit(err error) {
	fmt.Fprintln(os.Stderr, "Oops!", err)
	shutdown.Now(1)
}

// mode is the kind of exchange a server performs.
type mode int

const (
	sendText mode = iota
	sendFile
	sendDir
	receiveMode
)

func (m mode) String() string {
	switch m {
	case sendText:
		return "text"
	case sendFile:
		return "file"
	case sendDir:
		return "directory"
	case receiveMode:
		return "receive"
	}
	return "mode(" + strconv.Itoa(int(m)) + ")"
}

// server implements an http.Handler for one exchange. All of its fields are
// set before it starts serving and are not modified afterwards.
type server struct {
	mode mode

	// addr is the advertised URL, such as "http://192.168.1.2:4141/".
	addr string

	// input is the shared text, or the path of the shared file or
	// directory. Unused when receiving.
	input string

	// recv saves uploaded files. Used only when receiving.
	recv *upload.Receiver

	// out is where received text is printed.
	out io.Writer

	// key protects the receive forms from request forgery.
	// The check is disabled if key is empty.
	key string
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log.Debug.Printf("%s %s %s from %s", s.mode, r.Method, r.URL.Path, r.RemoteAddr)
	switch s.mode {
	case sendText:
		s.serveText(w, r)
	case sendFile:
		s.serveFile(w, r)
	case sendDir:
		s.serveDir(w, r)
	case receiveMode:
		s.serveReceive(w, r)
	default:
		http.Error(w, "Bad server mode", http.StatusInternalServerError)
	}
}

// listenAndServe listens on host:port, advertises s.addr as a QR code on
// con and serves s until the process is shut down.
func listenAndServe(con *console, s *server, hostPort string, maxConns int, compact bool) error {
	l, err := net.Listen("tcp", hostPort)
	if err != nil {
		return errors.E(errors.Op("listen"), errors.IO, err)
	}
	if maxConns > 0 {
		l = netutil.LimitListener(l, maxConns)
	}

	if err := printCode(con.out, s.addr, compact); err != nil {
		l.Close()
		return err
	}
	fmt.Fprintf(con.out, "Serving %s at %s\n", s.mode, s.addr)
	logf("serving %s at %s", s.mode, s.addr)

	srv := &http.Server{Handler: s}
	shutdown.Handle(func() {
		srv.Close()
	})
	if err := srv.Serve(l); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// printCode writes the QR code for text to w.
func printCode(w io.Writer, text string, compact bool) error {
	if compact {
		qrterm.Compact(w, text)
		return nil
	}
	return qrterm.Print(w, text)
}

// advertise returns the URL at which a server bound to host and port
// can be reached, and the address to listen on.
func advertise(host string, port int) (url, hostPort string) {
	hostPort = net.JoinHostPort(host, strconv.Itoa(port))
	return "http://" + hostPort + "/", hostPort
}

func generateKey() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", b), nil
}

// ifError checks if the error is the expected one, and if so writes back an
// HTTP error of the corresponding code.
func ifError(w http.ResponseWriter, got error, want errors.Kind, code int) bool {
	if !errors.Match(errors.E(want), got) {
		return false
	}
	http.Error(w, got.Error(), code)
	return true
}

func httpError(w http.ResponseWriter, err error) {
	// This construction sets the HTTP error to the first type that matches.
	switch {
	case ifError(w, err, errors.Invalid, http.StatusBadRequest):
	case ifError(w, err, errors.Permission, http.StatusForbidden):
	case ifError(w, err, errors.NotExist, http.StatusNotFound):
	case ifError(w, err, errors.IsDir, http.StatusNotFound):
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
