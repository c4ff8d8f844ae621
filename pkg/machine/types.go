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

package machine

import (
	"github.com/retroenv/retrogolib/log"
)

// Opcode is a 16-bit instruction word, fields are named after the usual
// 0xKXYN / 0xKXNN / 0xKNNN notation.
type Opcode uint16

func (op Opcode) Group() uint16 { return uint16(op) >> 12 }
func (op Opcode) X() uint16     { return (uint16(op) >> 8) & 0xF }
func (op Opcode) Y() uint16     { return (uint16(op) >> 4) & 0xF }
func (op Opcode) N() uint16     { return uint16(op) & 0xF }
func (op Opcode) NN() uint16    { return uint16(op) & 0xFF }
func (op Opcode) NNN() uint16   { return uint16(op) & 0xFFF }

type MachineState struct {
	Memory  [MEMORY_SIZE]byte
	Display [DISPLAY_SIZE]byte

	V     [REGISTER_COUNT]byte
	Index uint16

	Stack        [STACK_SIZE]uint16
	StackPointer int8

	Program uint16

	DelayTimer byte
	SoundTimer byte

	// Written by the host between steps
	Keys [KEY_COUNT]bool

	// Set when the last step changed Display
	DrawFlag bool
}

// Quirks selects between incompatible interpreter conventions. The zero value
// shifts V[x] in place and ticks both timers once per step.
type Quirks struct {
	// 8XY6/8XYE shift V[y] into V[x]
	ShiftUsesVY bool

	// Timers are left to the host, which calls TickTimers at 60Hz
	DecoupledTimers bool
}

type RandomSource interface {
	Byte() byte
}

type MachineDebugger interface {
	Step(mc *Machine)
	Read(addr uint16, mc *Machine)
	Write(addr uint16, mc *Machine)
}

type Machine struct {
	State    MachineState
	Quirks   Quirks
	Random   RandomSource
	Debugger MachineDebugger
	Logger   *log.Logger
}
