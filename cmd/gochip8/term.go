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
	"errors"
	"fmt"
	"os"

	"github.com/lassandro/gochip8/pkg/machine"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

var errNotTerminal = errors.New("stdin and stdout must be a terminal")
var errTerminalTooSmall = errors.New("terminal too small")

var termRestore unix.Termios

// The display is drawn with two pixel rows per text row
const (
	screenColumns = machine.DISPLAY_WIDTH
	screenRows    = machine.DISPLAY_HEIGHT / 2
)

func checkTerminal() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errNotTerminal
	}

	width, height, err := term.GetSize(int(os.Stdout.Fd()))

	if err != nil {
		return fmt.Errorf("reading terminal size: %w", err)
	}

	if width < screenColumns || height < screenRows {
		return fmt.Errorf(
			"%w: want %dx%d, have %dx%d",
			errTerminalTooSmall, screenColumns, screenRows, width, height,
		)
	}

	return nil
}

func enterRawTerm() error {
	termios, err := unix.IoctlGetTermios(int(os.Stdin.Fd()), ioctlReadTermios)

	if err != nil {
		return err
	}

	termRestore = *termios
	termstate := *termios

	termstate.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.INLCR | unix.ICRNL
	termstate.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.IEXTEN
	termstate.Cflag &^= unix.CSIZE | unix.PARENB
	termstate.Cflag |= unix.CS8

	// Reads block in the input goroutine until a key arrives
	termstate.Cc[unix.VMIN] = 1
	termstate.Cc[unix.VTIME] = 0

	return unix.IoctlSetTermios(int(os.Stdin.Fd()), ioctlWriteTermios, &termstate)
}

func exitRawTerm() error {
	return unix.IoctlSetTermios(int(os.Stdin.Fd()), ioctlWriteTermios, &termRestore)
}
