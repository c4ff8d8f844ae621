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

type handler func(mc *Machine, addr uint16, op Opcode) error

// instructions is indexed by the top nibble of the opcode. Every entry is
// populated; groups that share a nibble sub-dispatch on the low bits.
var instructions = [16]handler{
	OP_SYS:  execSys,
	OP_JP:   execJump,
	OP_CALL: execCall,
	OP_SEI:  execSkipEqualImm,
	OP_SNEI: execSkipNotEqualImm,
	OP_SER:  execSkipEqualReg,
	OP_LDI:  execLoadImm,
	OP_ADDI: execAddImm,
	OP_ALU:  execALU,
	OP_SNER: execSkipNotEqualReg,
	OP_LDA:  execLoadIndex,
	OP_JPV:  execJumpOffset,
	OP_RND:  execRandom,
	OP_DRW:  execDraw,
	OP_KEY:  execKey,
	OP_MISC: execMisc,
}

var sysInstructions = map[uint16]handler{
	SYS_CLS: execClear,
	SYS_RET: execReturn,
}

var aluInstructions = map[uint16]handler{
	ALU_LD:   execALULoad,
	ALU_OR:   execALUOr,
	ALU_AND:  execALUAnd,
	ALU_XOR:  execALUXor,
	ALU_ADD:  execALUAdd,
	ALU_SUB:  execALUSub,
	ALU_SHR:  execALUShiftRight,
	ALU_SUBN: execALUSubN,
	ALU_SHL:  execALUShiftLeft,
}

var keyInstructions = map[uint16]handler{
	KEY_SKP:  execSkipPressed,
	KEY_SKNP: execSkipNotPressed,
}

var miscInstructions = map[uint16]handler{
	MISC_LD_VX_DT: execLoadDelay,
	MISC_LD_VX_K:  execWaitKey,
	MISC_LD_DT_VX: execSetDelay,
	MISC_LD_ST_VX: execSetSound,
	MISC_ADD_I_VX: execAddIndex,
	MISC_LD_F_VX:  execLoadGlyph,
	MISC_LD_B_VX:  execStoreBCD,
	MISC_LD_MI_VX: execStoreRegisters,
	MISC_LD_VX_MI: execLoadRegisters,
}

func unknown(addr uint16, op Opcode) error {
	return &UnknownOpcodeError{Addr: addr, Opcode: op}
}

func dispatch(table map[uint16]handler, key uint16, mc *Machine, addr uint16, op Opcode) error {
	if exec, ok := table[key]; ok {
		return exec(mc, addr, op)
	}
	return unknown(addr, op)
}

func (mc *Machine) skipIf(cond bool) {
	if cond {
		mc.State.Program += 2
	}
}

func flag(cond bool) byte {
	if cond {
		return 1
	}
	return 0
}

// CLS  |0|0|E|0| Clear display
// RET  |0|0|E|E| Return from subroutine
// ---- [ _ _ _ _ ]
func execSys(mc *Machine, addr uint16, op Opcode) error {
	if op.X() != 0 {
		return unknown(addr, op)
	}
	return dispatch(sysInstructions, op.NN(), mc, addr, op)
}

func execClear(mc *Machine, addr uint16, op Opcode) error {
	for i := range mc.State.Display {
		mc.State.Display[i] = 0
	}

	mc.State.DrawFlag = true
	return nil
}

func execReturn(mc *Machine, addr uint16, op Opcode) error {
	st := &mc.State

	if st.StackPointer <= StackEmpty {
		return &StackError{Addr: addr, Pointer: st.StackPointer}
	}

	st.Program = st.Stack[st.StackPointer]
	st.StackPointer--
	return nil
}

// JP   |1|NNN  | Jump
// ---- [ _ _ _ _ ]
func execJump(mc *Machine, addr uint16, op Opcode) error {
	mc.State.Program = op.NNN()
	return nil
}

// CALL |2|NNN  | Call subroutine
// ---- [ _ _ _ _ ]
func execCall(mc *Machine, addr uint16, op Opcode) error {
	st := &mc.State

	if int(st.StackPointer) >= STACK_SIZE-1 {
		return &StackError{Addr: addr, Pointer: st.StackPointer, Overflow: true}
	}

	st.StackPointer++
	st.Stack[st.StackPointer] = st.Program
	st.Program = op.NNN()
	return nil
}

// SE   |3|X|NN | Skip if Vx == NN
// ---- [ _ _ _ _ ]
func execSkipEqualImm(mc *Machine, addr uint16, op Opcode) error {
	mc.skipIf(mc.State.V[op.X()] == byte(op.NN()))
	return nil
}

// SNE  |4|X|NN | Skip if Vx != NN
// ---- [ _ _ _ _ ]
func execSkipNotEqualImm(mc *Machine, addr uint16, op Opcode) error {
	mc.skipIf(mc.State.V[op.X()] != byte(op.NN()))
	return nil
}

// SE   |5|X|Y|0| Skip if Vx == Vy
// ---- [ _ _ _ _ ]
func execSkipEqualReg(mc *Machine, addr uint16, op Opcode) error {
	if op.N() != 0 {
		return unknown(addr, op)
	}

	mc.skipIf(mc.State.V[op.X()] == mc.State.V[op.Y()])
	return nil
}

// LD   |6|X|NN | Vx = NN
// ---- [ _ _ _ _ ]
func execLoadImm(mc *Machine, addr uint16, op Opcode) error {
	mc.State.V[op.X()] = byte(op.NN())
	return nil
}

// ADD  |7|X|NN | Vx += NN, VF untouched
// ---- [ _ _ _ _ ]
func execAddImm(mc *Machine, addr uint16, op Opcode) error {
	mc.State.V[op.X()] += byte(op.NN())
	return nil
}

// ALU  |8|X|Y|N| Register arithmetic, N selects the operation
// ---- [ _ _ _ _ ]
func execALU(mc *Machine, addr uint16, op Opcode) error {
	return dispatch(aluInstructions, op.N(), mc, addr, op)
}

func execALULoad(mc *Machine, addr uint16, op Opcode) error {
	mc.State.V[op.X()] = mc.State.V[op.Y()]
	return nil
}

func execALUOr(mc *Machine, addr uint16, op Opcode) error {
	mc.State.V[op.X()] |= mc.State.V[op.Y()]
	return nil
}

func execALUAnd(mc *Machine, addr uint16, op Opcode) error {
	mc.State.V[op.X()] &= mc.State.V[op.Y()]
	return nil
}

func execALUXor(mc *Machine, addr uint16, op Opcode) error {
	mc.State.V[op.X()] ^= mc.State.V[op.Y()]
	return nil
}

// Operands are read before any register is written; the flag is written
// before the result, so with X == F the result is what remains in VF.

func execALUAdd(mc *Machine, addr uint16, op Opcode) error {
	vx, vy := mc.State.V[op.X()], mc.State.V[op.Y()]
	sum := uint16(vx) + uint16(vy)

	mc.State.V[REG_FLAG] = flag(sum > 0xFF)
	mc.State.V[op.X()] = byte(sum)
	return nil
}

func execALUSub(mc *Machine, addr uint16, op Opcode) error {
	vx, vy := mc.State.V[op.X()], mc.State.V[op.Y()]

	mc.State.V[REG_FLAG] = flag(vx >= vy)
	mc.State.V[op.X()] = vx - vy
	return nil
}

func execALUSubN(mc *Machine, addr uint16, op Opcode) error {
	vx, vy := mc.State.V[op.X()], mc.State.V[op.Y()]

	mc.State.V[REG_FLAG] = flag(vy >= vx)
	mc.State.V[op.X()] = vy - vx
	return nil
}

func (mc *Machine) shiftSource(op Opcode) byte {
	if mc.Quirks.ShiftUsesVY {
		return mc.State.V[op.Y()]
	}
	return mc.State.V[op.X()]
}

func execALUShiftRight(mc *Machine, addr uint16, op Opcode) error {
	value := mc.shiftSource(op)

	mc.State.V[REG_FLAG] = value & 0x1
	mc.State.V[op.X()] = value >> 1
	return nil
}

func execALUShiftLeft(mc *Machine, addr uint16, op Opcode) error {
	value := mc.shiftSource(op)

	mc.State.V[REG_FLAG] = (value >> 7) & 0x1
	mc.State.V[op.X()] = value << 1
	return nil
}

// SNE  |9|X|Y|0| Skip if Vx != Vy
// ---- [ _ _ _ _ ]
func execSkipNotEqualReg(mc *Machine, addr uint16, op Opcode) error {
	if op.N() != 0 {
		return unknown(addr, op)
	}

	mc.skipIf(mc.State.V[op.X()] != mc.State.V[op.Y()])
	return nil
}

// LD   |A|NNN  | I = NNN
// ---- [ _ _ _ _ ]
func execLoadIndex(mc *Machine, addr uint16, op Opcode) error {
	mc.State.Index = op.NNN()
	return nil
}

// JP   |B|NNN  | Jump to NNN + V0
// ---- [ _ _ _ _ ]
func execJumpOffset(mc *Machine, addr uint16, op Opcode) error {
	mc.State.Program = op.NNN() + uint16(mc.State.V[0])
	return nil
}

// RND  |C|X|NN | Vx = random & NN
// ---- [ _ _ _ _ ]
func execRandom(mc *Machine, addr uint16, op Opcode) error {
	mc.State.V[op.X()] = mc.random() & byte(op.NN())
	return nil
}

// DRW  |D|X|Y|N| XOR an N-row sprite from I at (Vx, Vy), VF = collision
// ---- [ _ _ _ _ ]
func execDraw(mc *Machine, addr uint16, op Opcode) error {
	st := &mc.State
	rows := int(op.N())

	if err := checkAccess(addr, int(st.Index), rows, AccessRead); err != nil {
		return err
	}

	originX, originY := int(st.V[op.X()]), int(st.V[op.Y()])

	st.V[REG_FLAG] = 0
	st.DrawFlag = true

	for row := 0; row < rows; row++ {
		sprite := mc.read(st.Index + uint16(row))
		y := (originY + row) % DISPLAY_HEIGHT

		for col := 0; col < 8; col++ {
			if sprite&(0x80>>col) == 0 {
				continue
			}

			x := (originX + col) % DISPLAY_WIDTH
			pixel := &st.Display[x+y*DISPLAY_WIDTH]

			if *pixel != 0 {
				st.V[REG_FLAG] = 1
			}

			*pixel ^= 1
		}
	}

	return nil
}

// SKP  |E|X|9|E| Skip if key Vx is down
// SKNP |E|X|A|1| Skip if key Vx is up
// ---- [ _ _ _ _ ]
func execKey(mc *Machine, addr uint16, op Opcode) error {
	return dispatch(keyInstructions, op.NN(), mc, addr, op)
}

// Only the low nibble of Vx names a key
func (mc *Machine) keyDown(op Opcode) bool {
	return mc.State.Keys[mc.State.V[op.X()]&0xF]
}

func execSkipPressed(mc *Machine, addr uint16, op Opcode) error {
	mc.skipIf(mc.keyDown(op))
	return nil
}

func execSkipNotPressed(mc *Machine, addr uint16, op Opcode) error {
	mc.skipIf(!mc.keyDown(op))
	return nil
}

// MISC |F|X|NN | Timers, keyboard wait, index and block memory transfers
// ---- [ _ _ _ _ ]
func execMisc(mc *Machine, addr uint16, op Opcode) error {
	return dispatch(miscInstructions, op.NN(), mc, addr, op)
}

func execLoadDelay(mc *Machine, addr uint16, op Opcode) error {
	mc.State.V[op.X()] = mc.State.DelayTimer
	return nil
}

// Re-executes itself on the next step until a key is down
func execWaitKey(mc *Machine, addr uint16, op Opcode) error {
	for key, down := range mc.State.Keys {
		if down {
			mc.State.V[op.X()] = byte(key)
			return nil
		}
	}

	mc.State.Program -= 2
	return nil
}

func execSetDelay(mc *Machine, addr uint16, op Opcode) error {
	mc.State.DelayTimer = mc.State.V[op.X()]
	return nil
}

func execSetSound(mc *Machine, addr uint16, op Opcode) error {
	mc.State.SoundTimer = mc.State.V[op.X()]
	return nil
}

func execAddIndex(mc *Machine, addr uint16, op Opcode) error {
	sum := uint32(mc.State.Index) + uint32(mc.State.V[op.X()])

	mc.State.Index = uint16(sum & uint32(MEMSPACE_END))
	mc.State.V[REG_FLAG] = flag(sum > uint32(MEMSPACE_END))
	return nil
}

func execLoadGlyph(mc *Machine, addr uint16, op Opcode) error {
	mc.State.Index = MEMSPACE_FONT + uint16(mc.State.V[op.X()])*FONT_GLYPH_SIZE
	return nil
}

func execStoreBCD(mc *Machine, addr uint16, op Opcode) error {
	st := &mc.State

	if err := checkAccess(addr, int(st.Index), 3, AccessWrite); err != nil {
		return err
	}

	value := st.V[op.X()]
	mc.write(st.Index, value/100)
	mc.write(st.Index+1, (value/10)%10)
	mc.write(st.Index+2, value%10)
	return nil
}

func execStoreRegisters(mc *Machine, addr uint16, op Opcode) error {
	st := &mc.State
	count := int(op.X()) + 1

	if err := checkAccess(addr, int(st.Index), count, AccessWrite); err != nil {
		return err
	}

	for i := 0; i < count; i++ {
		mc.write(st.Index+uint16(i), st.V[i])
	}

	return nil
}

func execLoadRegisters(mc *Machine, addr uint16, op Opcode) error {
	st := &mc.State
	count := int(op.X()) + 1

	if err := checkAccess(addr, int(st.Index), count, AccessRead); err != nil {
		return err
	}

	for i := 0; i < count; i++ {
		st.V[i] = mc.read(st.Index + uint16(i))
	}

	return nil
}
