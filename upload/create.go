// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package upload

import (
	"os"
	"strconv"

	"upspin.io/errors"
)

// maxCandidates bounds the search for a free file name.
const maxCandidates = 10000

// Candidate returns the n-th name to try when saving a file as path.
// The zeroth candidate is path itself; later ones append ".n", so that
// "a.txt" becomes "a.txt.1" and "a" becomes "a.1".
func Candidate(path string, n int) string {
	if n == 0 {
		return path
	}
	return path + "." + strconv.Itoa(n)
}

// Create creates a new file for writing at the first candidate of path that
// does not exist, and returns the file and its name. Each candidate is opened
// with O_EXCL, so an existing file is never truncated or shared, even when
// concurrent calls race for the same name.
func Create(path string) (*os.File, string, error) {
	const op errors.Op = "upload.Create"
	for n := 0; n < maxCandidates; n++ {
		name := Candidate(path, n)
		f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, name, nil
		}
		if !os.IsExist(err) {
			return nil, "", errors.E(op, errors.IO, err)
		}
	}
	return nil, "", errors.E(op, errors.Exist, errors.Errorf("no free name for %q after %d attempts", path, maxCandidates))
}
