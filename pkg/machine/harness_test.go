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

package machine_test

import (
	"github.com/lassandro/gochip8/pkg/machine"
)

type testMachineState struct {
	V          [machine.REGISTER_COUNT]byte
	Index      uint16
	Program    uint16
	Stack      []uint16
	DelayTimer byte
	SoundTimer byte
	Keys       []int
	Memory     map[uint16]byte
	Pixels     []int
	DrawFlag   bool
}

type testCase struct {
	Name   string
	Steps  uint
	Quirks machine.Quirks
	Random machine.RandomSource
	Input  testMachineState
	Output testMachineState

	// Sentinel the last step is expected to fail with
	Error error
}

type fixedRandom byte

func (rnd fixedRandom) Byte() byte {
	return byte(rnd)
}

// program places words at MEMSPACE_PROGRAM, big-endian.
func program(words ...uint16) map[uint16]byte {
	memory := make(map[uint16]byte, len(words)*2)

	for i, word := range words {
		addr := machine.MEMSPACE_PROGRAM + uint16(i*2)
		memory[addr] = byte(word >> 8)
		memory[addr+1] = byte(word)
	}

	return memory
}

// with adds data at addr to a memory map.
func with(memory map[uint16]byte, addr uint16, data ...byte) map[uint16]byte {
	for i, value := range data {
		memory[addr+uint16(i)] = value
	}
	return memory
}

func fullStack() []uint16 {
	stack := make([]uint16, machine.STACK_SIZE)
	for i := range stack {
		stack[i] = 0x300 + uint16(i*2)
	}
	return stack
}
