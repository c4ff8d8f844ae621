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

// Package disasm renders CHIP-8 opcodes as assembly text.
//
// Mnemonics follow the common Cowgod notation and are accepted back by the
// assembler package, so Disassemble and assembly round-trip for every valid
// opcode:
//
//	0x00E0  CLS
//	0x2300  CALL $300
//	0x6A0F  LD VA, $0F
//	0xD125  DRW V1, V2, $5
//	0xF155  LD [I], V1
//
// Words that do not decode to an instruction are rendered as data, .DW $XXXX.
package disasm

import (
	"fmt"
	"io"
	"strings"
)

type Instruction struct {
	Opcode   uint16
	Name     string
	Operands string

	// False when the word is not a documented instruction
	Valid bool
}

func (ins Instruction) String() string {
	if ins.Operands == "" {
		return ins.Name
	}
	return ins.Name + " " + ins.Operands
}

// IsJump reports an unconditional transfer that does not return (JP).
func (ins Instruction) IsJump() bool { return ins.Valid && ins.Name == "JP" }

func (ins Instruction) IsCall() bool { return ins.Valid && ins.Name == "CALL" }

func (ins Instruction) IsReturn() bool { return ins.Valid && ins.Name == "RET" }

// IsSkip reports the conditional skips, which continue at +2 or +4.
func (ins Instruction) IsSkip() bool {
	if !ins.Valid {
		return false
	}

	switch ins.Name {
	case "SE", "SNE", "SKP", "SKNP":
		return true
	}
	return false
}

func registerX(opcode uint16) uint16 {
	return (opcode & 0x0F00) >> 8
}

func registerY(opcode uint16) uint16 {
	return (opcode & 0x00F0) >> 4
}

func data(opcode uint16) Instruction {
	return Instruction{
		Opcode:   opcode,
		Name:     ".DW",
		Operands: fmt.Sprintf("$%04X", opcode),
	}
}

func valid(opcode uint16, name, operands string) Instruction {
	return Instruction{Opcode: opcode, Name: name, Operands: operands, Valid: true}
}

// Decode combines the first two bytes of data into a big-endian opcode.
func Decode(data []byte) (uint16, bool) {
	if len(data) < 2 {
		return 0, false
	}
	return uint16(data[0])<<8 | uint16(data[1]), true
}

func Disassemble(opcode uint16) Instruction {
	x := registerX(opcode)
	y := registerY(opcode)
	n := opcode & 0x000F
	nn := opcode & 0x00FF
	nnn := opcode & 0x0FFF

	switch opcode & 0xF000 {
	case 0x0000:
		switch opcode {
		case 0x00E0:
			return valid(opcode, "CLS", "")
		case 0x00EE:
			return valid(opcode, "RET", "")
		}
		return valid(opcode, "SYS", fmt.Sprintf("$%03X", nnn))

	case 0x1000:
		return valid(opcode, "JP", fmt.Sprintf("$%03X", nnn))

	case 0x2000:
		return valid(opcode, "CALL", fmt.Sprintf("$%03X", nnn))

	case 0x3000:
		return valid(opcode, "SE", fmt.Sprintf("V%X, $%02X", x, nn))

	case 0x4000:
		return valid(opcode, "SNE", fmt.Sprintf("V%X, $%02X", x, nn))

	case 0x5000:
		if n == 0 {
			return valid(opcode, "SE", fmt.Sprintf("V%X, V%X", x, y))
		}

	case 0x6000:
		return valid(opcode, "LD", fmt.Sprintf("V%X, $%02X", x, nn))

	case 0x7000:
		return valid(opcode, "ADD", fmt.Sprintf("V%X, $%02X", x, nn))

	case 0x8000:
		return disassembleALU(opcode, x, y, n)

	case 0x9000:
		if n == 0 {
			return valid(opcode, "SNE", fmt.Sprintf("V%X, V%X", x, y))
		}

	case 0xA000:
		return valid(opcode, "LD", fmt.Sprintf("I, $%03X", nnn))

	case 0xB000:
		return valid(opcode, "JP", fmt.Sprintf("V0, $%03X", nnn))

	case 0xC000:
		return valid(opcode, "RND", fmt.Sprintf("V%X, $%02X", x, nn))

	case 0xD000:
		return valid(opcode, "DRW", fmt.Sprintf("V%X, V%X, $%X", x, y, n))

	case 0xE000:
		switch nn {
		case 0x9E:
			return valid(opcode, "SKP", fmt.Sprintf("V%X", x))
		case 0xA1:
			return valid(opcode, "SKNP", fmt.Sprintf("V%X", x))
		}

	case 0xF000:
		return disassembleMisc(opcode, x, nn)
	}

	return data(opcode)
}

func disassembleALU(opcode, x, y, n uint16) Instruction {
	var name string

	switch n {
	case 0x0:
		name = "LD"
	case 0x1:
		name = "OR"
	case 0x2:
		name = "AND"
	case 0x3:
		name = "XOR"
	case 0x4:
		name = "ADD"
	case 0x5:
		name = "SUB"
	case 0x7:
		name = "SUBN"
	case 0x6, 0xE:
		name = "SHR"
		if n == 0xE {
			name = "SHL"
		}
		// Y only matters to interpreters that shift Vy
		if y == 0 {
			return valid(opcode, name, fmt.Sprintf("V%X", x))
		}
	default:
		return data(opcode)
	}

	return valid(opcode, name, fmt.Sprintf("V%X, V%X", x, y))
}

func disassembleMisc(opcode, x, nn uint16) Instruction {
	switch nn {
	case 0x07:
		return valid(opcode, "LD", fmt.Sprintf("V%X, DT", x))
	case 0x0A:
		return valid(opcode, "LD", fmt.Sprintf("V%X, K", x))
	case 0x15:
		return valid(opcode, "LD", fmt.Sprintf("DT, V%X", x))
	case 0x18:
		return valid(opcode, "LD", fmt.Sprintf("ST, V%X", x))
	case 0x1E:
		return valid(opcode, "ADD", fmt.Sprintf("I, V%X", x))
	case 0x29:
		return valid(opcode, "LD", fmt.Sprintf("F, V%X", x))
	case 0x33:
		return valid(opcode, "LD", fmt.Sprintf("B, V%X", x))
	case 0x55:
		return valid(opcode, "LD", fmt.Sprintf("[I], V%X", x))
	case 0x65:
		return valid(opcode, "LD", fmt.Sprintf("V%X, [I]", x))
	}
	return data(opcode)
}

// Listing writes one line per word of image, addressed from origin. A
// trailing odd byte is written as .DB.
func Listing(w io.Writer, image []byte, origin uint16) error {
	var builder strings.Builder

	for offset := 0; offset < len(image); offset += 2 {
		addr := int(origin) + offset

		opcode, ok := Decode(image[offset:])
		if !ok {
			fmt.Fprintf(&builder, "%03X: %02X    .DB $%02X\n", addr, image[offset], image[offset])
			break
		}

		fmt.Fprintf(&builder, "%03X: %04X  %s\n", addr, opcode, Disassemble(opcode))
	}

	_, err := io.WriteString(w, builder.String())
	return err
}
