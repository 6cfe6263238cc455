// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Command qrs shares text and files between devices on the same network
by way of a QR code shown in the terminal.

Sending

	qrs send [-type text|file] [-maxlen n] [-host h] [-port p] INPUT

Text of at most -maxlen bytes (default 120) is printed as a QR code
holding the text itself. Longer text, a file or a directory is served
over HTTP, and the QR code holds the URL of the server. A directory is
served as a page linking each of its files.

Without -type, an INPUT that names an existing path is shared as a file
or directory. If -host is also unset, qrs asks before doing so.

Receiving

	qrs receive [-host h] [-port p] [-dir d] [-eol crlf|lf] [-xsrf]

The QR code opens a page with two forms. Text sent with the first is
printed on standard output. A file sent with the second is saved in the
-dir directory. If a file of that name exists, ".1", ".2" and so on is
appended until the name is free; existing files are never overwritten.
Files can also be sent without a browser:

	curl -F file=@photo.jpg http://192.168.1.2:4141/file

With -xsrf, uploads must carry the token embedded in the page's forms.

Network

Unless -host is given, qrs binds to the IPv4 address of a network
interface. If there are several, it asks which one to use and suggests
the one on the default gateway's network. The default port is 4141.

Logging

The global -log flag sets the log level (debug, info, error or disabled).
With -logfile the log is written to $HOME/.qrs/log/qrs.log.
*/
package main
