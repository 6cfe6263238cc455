// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package qrterm prints QR codes on a terminal.
package qrterm // import "qrs.upspin.io/qrterm"

import (
	"bufio"
	"io"

	"github.com/mdp/qrterminal/v3"
	"rsc.io/qr"

	"upspin.io/errors"
)

// Matrix is a square grid of dark and light modules.
type Matrix interface {
	Size() int
	Dark(x, y int) bool
}

// Style describes how matrix cells are drawn.
type Style struct {
	Dark      string // Drawn for a dark module.
	Light     string // Drawn for a light module and the quiet zone.
	QuietZone int    // Width of the light border, in cells.
}

// ANSI draws each module as two spaces, using reverse video for light
// modules, and surrounds the code with the standard four-module quiet zone.
var ANSI = Style{
	Dark:      "\x1b[49m  \x1b[0m",
	Light:     "\x1b[7m  \x1b[0m",
	QuietZone: 4,
}

type code struct {
	c *qr.Code
}

func (c code) Size() int          { return c.c.Size }
func (c code) Dark(x, y int) bool { return c.c.Black(x, y) }

// Encode returns the QR code matrix for text at error correction level M.
func Encode(text string) (Matrix, error) {
	c, err := qr.Encode(text, qr.M)
	if err != nil {
		return nil, errors.E(errors.Op("qrterm.Encode"), errors.Invalid, err)
	}
	return code{c}, nil
}

// Render writes m to w in style st, one line per row.
func Render(w io.Writer, m Matrix, st Style) error {
	bw := bufio.NewWriter(w)
	size, qz := m.Size(), st.QuietZone
	width := size + 2*qz
	for y := 0; y < width; y++ {
		for x := 0; x < width; x++ {
			cell := st.Light
			if qz <= x && x < size+qz && qz <= y && y < size+qz && m.Dark(x-qz, y-qz) {
				cell = st.Dark
			}
			bw.WriteString(cell)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Print writes the QR code for text to w in the ANSI style.
func Print(w io.Writer, text string) error {
	m, err := Encode(text)
	if err != nil {
		return err
	}
	return Render(w, m, ANSI)
}

// Half-block characters; each character covers two rows of modules.
const (
	blackBlack = " "
	blackWhite = "▄"
	whiteBlack = "▀"
	whiteWhite = "█"
)

// Compact writes the QR code for text to w using half-block characters,
// which halves its height. It suits large payloads on small terminals.
func Compact(w io.Writer, text string) {
	qrterminal.GenerateWithConfig(text, qrterminal.Config{
		Level:          qrterminal.M,
		Writer:         w,
		HalfBlocks:     true,
		BlackChar:      blackBlack,
		BlackWhiteChar: blackWhite,
		WhiteChar:      whiteWhite,
		WhiteBlackChar: whiteBlack,
		QuietZone:      1,
	})
}
