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
	"time"

	"github.com/lassandro/gochip8/pkg/machine"
)

const keyEscape = 0x1B

// Keypad index of each host key, row by row: 1234 / QWER / ASDF / ZXCV
var keymap = map[byte]int{
	'1': 0x0, '2': 0x1, '3': 0x2, '4': 0x3,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0x7,
	'a': 0x8, 's': 0x9, 'd': 0xA, 'f': 0xB,
	'z': 0xC, 'x': 0xD, 'c': 0xE, 'v': 0xF,
}

func lookupKey(b byte) (int, bool) {
	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}

	key, ok := keymap[b]
	return key, ok
}

// keypad tracks key state for a terminal, which reports presses but no
// releases. A key is held until hold has elapsed since its last press.
type keypad struct {
	hold     time.Duration
	deadline [machine.KEY_COUNT]time.Time
}

func (kp *keypad) press(keys *[machine.KEY_COUNT]bool, key int, now time.Time) {
	keys[key] = true
	kp.deadline[key] = now.Add(kp.hold)
}

func (kp *keypad) release(keys *[machine.KEY_COUNT]bool, now time.Time) {
	for key, deadline := range kp.deadline {
		if keys[key] && !now.Before(deadline) {
			keys[key] = false
		}
	}
}
