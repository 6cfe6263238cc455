// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"upspin.io/errors"
)

// console asks the user questions.
type console struct {
	in  *bufio.Reader
	out io.Writer
}

func newConsole(in io.Reader, out io.Writer) *console {
	return &console{in: bufio.NewReader(in), out: out}
}

// readLine returns the next line of input without its terminator.
func (c *console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", errors.E(errors.Op("console"), errors.IO, err)
	}
	return strings.TrimSpace(line), nil
}

// confirm asks a yes/no question until it gets an answer.
// An empty answer means yes.
func (c *console) confirm(question string) (bool, error) {
	for {
		fmt.Fprintf(c.out, "%s [Y/n]", question)
		ans, err := c.readLine()
		if err != nil {
			return false, err
		}
		switch ans {
		case "", "Y", "y":
			return true, nil
		case "N", "n":
			return false, nil
		}
	}
}

// choose asks the user to pick one of items by number until a valid number
// is given, and returns its index. An empty answer picks def, if def is a
// valid index.
func (c *console) choose(question string, items []string, def int) (int, error) {
	for {
		fmt.Fprintf(c.out, "%s\n\n", question)
		for i, item := range items {
			if i == def {
				fmt.Fprintf(c.out, "%d): %s (default)\n", i, item)
				continue
			}
			fmt.Fprintf(c.out, "%d): %s\n", i, item)
		}
		ans, err := c.readLine()
		if err != nil {
			return 0, err
		}
		if ans == "" && 0 <= def && def < len(items) {
			return def, nil
		}
		i, err := strconv.Atoi(ans)
		if err == nil && 0 <= i && i < len(items) {
			return i, nil
		}
	}
}
