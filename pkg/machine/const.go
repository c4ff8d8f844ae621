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

const (
	MEMORY_SIZE     = 0x1000
	DISPLAY_WIDTH   = 64
	DISPLAY_HEIGHT  = 32
	DISPLAY_SIZE    = DISPLAY_WIDTH * DISPLAY_HEIGHT
	STACK_SIZE      = 16
	REGISTER_COUNT  = 16
	KEY_COUNT       = 16
	FONT_GLYPH_SIZE = 5
)

const (
	MEMSPACE_RESERVED uint16 = 0x0000
	MEMSPACE_FONT     uint16 = 0x0050
	MEMSPACE_FONT_END uint16 = 0x009F
	MEMSPACE_PROGRAM  uint16 = 0x0200
	MEMSPACE_END      uint16 = 0x0FFF
)

// Largest image LoadProgram accepts (0xE00 bytes)
const MAX_PROGRAM_SIZE = MEMORY_SIZE - int(MEMSPACE_PROGRAM)

// StackPointer value of an empty stack, the first push lands on index 0
const StackEmpty int8 = -1

const REG_FLAG = 0xF

// Top nibble of each instruction group
const (
	OP_SYS  uint16 = 0x0
	OP_JP   uint16 = 0x1
	OP_CALL uint16 = 0x2
	OP_SEI  uint16 = 0x3
	OP_SNEI uint16 = 0x4
	OP_SER  uint16 = 0x5
	OP_LDI  uint16 = 0x6
	OP_ADDI uint16 = 0x7
	OP_ALU  uint16 = 0x8
	OP_SNER uint16 = 0x9
	OP_LDA  uint16 = 0xA
	OP_JPV  uint16 = 0xB
	OP_RND  uint16 = 0xC
	OP_DRW  uint16 = 0xD
	OP_KEY  uint16 = 0xE
	OP_MISC uint16 = 0xF
)

// Low nibble of the 0x8 group
const (
	ALU_LD   uint16 = 0x0
	ALU_OR   uint16 = 0x1
	ALU_AND  uint16 = 0x2
	ALU_XOR  uint16 = 0x3
	ALU_ADD  uint16 = 0x4
	ALU_SUB  uint16 = 0x5
	ALU_SHR  uint16 = 0x6
	ALU_SUBN uint16 = 0x7
	ALU_SHL  uint16 = 0xE
)

// Low byte of the 0x0, 0xE and 0xF groups
const (
	SYS_CLS uint16 = 0xE0
	SYS_RET uint16 = 0xEE

	KEY_SKP  uint16 = 0x9E
	KEY_SKNP uint16 = 0xA1

	MISC_LD_VX_DT uint16 = 0x07
	MISC_LD_VX_K  uint16 = 0x0A
	MISC_LD_DT_VX uint16 = 0x15
	MISC_LD_ST_VX uint16 = 0x18
	MISC_ADD_I_VX uint16 = 0x1E
	MISC_LD_F_VX  uint16 = 0x29
	MISC_LD_B_VX  uint16 = 0x33
	MISC_LD_MI_VX uint16 = 0x55
	MISC_LD_VX_MI uint16 = 0x65
)

// Built-in hexadecimal glyphs 0-F, loaded at MEMSPACE_FONT
var Font = [KEY_COUNT * FONT_GLYPH_SIZE]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}
