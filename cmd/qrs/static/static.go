// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package static provides access to the HTML pages served by qrs.
package static // import "qrs.upspin.io/cmd/qrs/static"

import (
	"embed"
	"io/fs"
	"os"

	"upspin.io/errors"
)

//go:embed *.html
var files embed.FS

// File returns the contents of the named asset.
func File(name string) (string, error) {
	b, err := fs.ReadFile(files, name)
	if os.IsNotExist(err) {
		return "", errors.E(errors.NotExist, errors.Str("file not found"))
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}
