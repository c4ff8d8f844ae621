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
	"fmt"
	"io"

	"github.com/lassandro/gochip8/pkg/disasm"
	"github.com/retroenv/retrogolib/log"
)

func (mc *MachineState) Reset() {
	for i := range mc.Memory {
		mc.Memory[i] = 0x00
	}

	for i := range mc.Display {
		mc.Display[i] = 0x00
	}

	for i := range mc.Stack {
		mc.Stack[i] = 0x0000
	}

	for i := range mc.V {
		mc.V[i] = 0x00
	}

	for i := range mc.Keys {
		mc.Keys[i] = false
	}

	mc.Program = MEMSPACE_PROGRAM
	mc.Index = 0x0000
	mc.StackPointer = StackEmpty
	mc.DelayTimer = 0
	mc.SoundTimer = 0
	mc.DrawFlag = false

	copy(mc.Memory[MEMSPACE_FONT:], Font[:])
}

// LoadProgram copies a program image to MEMSPACE_PROGRAM. Memory is left
// untouched when the image does not fit.
func (mc *MachineState) LoadProgram(program []byte) error {
	if len(program) > MAX_PROGRAM_SIZE {
		return &ProgramTooLargeError{Size: len(program), Limit: MAX_PROGRAM_SIZE}
	}

	copy(mc.Memory[MEMSPACE_PROGRAM:], program)
	return nil
}

// LoadBin resets the machine and loads the image read from reader.
func (mc *Machine) LoadBin(reader io.Reader) error {
	mc.State.Reset()

	// Read one byte past the limit so oversized images are detected without
	// buffering the rest of the stream
	program, err := io.ReadAll(io.LimitReader(reader, int64(MAX_PROGRAM_SIZE)+1))

	if err != nil {
		return fmt.Errorf("reading program: %w", err)
	}

	return mc.State.LoadProgram(program)
}

// TickTimers decrements both timers toward zero. Step calls it once per
// instruction unless Quirks.DecoupledTimers is set.
func (mc *Machine) TickTimers() {
	if mc.State.DelayTimer > 0 {
		mc.State.DelayTimer--
	}

	if mc.State.SoundTimer > 0 {
		mc.State.SoundTimer--
	}
}

func (mc *Machine) read(addr uint16) byte {
	if mc.Debugger != nil {
		mc.Debugger.Read(addr, mc)
	}

	return mc.State.Memory[addr]
}

func (mc *Machine) write(addr uint16, value byte) {
	mc.State.Memory[addr] = value

	if mc.Debugger != nil {
		mc.Debugger.Write(addr, mc)
	}
}

// checkAccess validates count cells starting at start before an instruction
// touches any of them. Stores overlapping the font are rejected so it survives
// until the next reset.
func checkAccess(addr uint16, start, count int, access AccessType) error {
	if count <= 0 {
		return nil
	}

	if end := start + count - 1; end >= MEMORY_SIZE {
		target := MEMORY_SIZE
		if start > target {
			target = start
		}
		return &AddressError{Addr: addr, Target: target, Access: access}
	}

	end := start + count - 1
	font, fontEnd := int(MEMSPACE_FONT), int(MEMSPACE_FONT_END)

	if access == AccessWrite && start <= fontEnd && end >= font {
		target := start
		if target < font {
			target = font
		}
		return &AddressError{Addr: addr, Target: target, Access: access}
	}

	return nil
}

func (mc *Machine) random() byte {
	if mc.Random == nil {
		mc.Random = newTimeRandom()
	}

	return mc.Random.Byte()
}

// Step executes exactly one instruction. A failing step leaves Program on the
// faulting instruction and changes no other state apart from DrawFlag.
func (mc *Machine) Step() error {
	mc.State.DrawFlag = false

	addr := mc.State.Program

	if err := checkAccess(addr, int(addr), 2, AccessFetch); err != nil {
		return err
	}

	op := Opcode(uint16(mc.read(addr))<<8 | uint16(mc.read(addr+1)))

	mc.State.Program += 2

	if mc.Logger != nil {
		mc.Logger.Debug(
			"Step",
			log.String("pc", fmt.Sprintf("0x%03X", addr)),
			log.String("opcode", fmt.Sprintf("0x%04X", uint16(op))),
			log.String("instruction", disasm.Disassemble(uint16(op)).String()),
		)
	}

	if err := instructions[op.Group()](mc, addr, op); err != nil {
		mc.State.Program = addr
		return err
	}

	if !mc.Quirks.DecoupledTimers {
		mc.TickTimers()
	}

	if mc.Debugger != nil {
		mc.Debugger.Step(mc)
	}

	return nil
}
