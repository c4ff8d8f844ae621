// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"strings"

	"github.com/lassandro/gochip8/pkg/machine"
)

const (
	cursorHome  = "\033[H"
	clearScreen = "\033[2J"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
	bell        = "\a"
)

// renderFrame draws two display rows per text row with half block glyphs.
func renderFrame(display *[machine.DISPLAY_SIZE]byte) string {
	var builder strings.Builder

	builder.WriteString(cursorHome)

	for y := 0; y < machine.DISPLAY_HEIGHT; y += 2 {
		for x := 0; x < machine.DISPLAY_WIDTH; x++ {
			top := display[x+y*machine.DISPLAY_WIDTH] != 0
			bottom := display[x+(y+1)*machine.DISPLAY_WIDTH] != 0

			switch {
			case top && bottom:
				builder.WriteRune('█')
			case top:
				builder.WriteRune('▀')
			case bottom:
				builder.WriteRune('▄')
			default:
				builder.WriteByte(' ')
			}
		}

		builder.WriteString("\r\n")
	}

	return builder.String()
}

// soundStarted reports the sound timer going from silent to active.
func soundStarted(previous, current byte) bool {
	return previous == 0 && current > 0
}
