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

package assembler

const (
	TOKEN_NONE TokenType = iota
	TOKEN_IDENT
	TOKEN_LABEL
	TOKEN_DIRECTIVE
	TOKEN_LITERAL
)

const (
	// Concrete operand classes, as tokenized
	OPERAND_INVALID OperandType = iota
	OPERAND_REGISTER
	OPERAND_NUMBER
	OPERAND_LABEL
	OPERAND_INDEX
	OPERAND_INDIRECT
	OPERAND_DELAY
	OPERAND_SOUND
	OPERAND_KEY
	OPERAND_FONT
	OPERAND_BCD

	// Operand slots accepted by instruction forms
	OPERAND_V0
	OPERAND_ADDR
	OPERAND_BYTE
	OPERAND_NIBBLE
)

const (
	DIRECTIVE_INVALID DirectiveType = iota
	DIRECTIVE_ORG
	DIRECTIVE_DB
	DIRECTIVE_DW
	DIRECTIVE_END
)

const (
	FIXUP_ADDR FixupType = iota
	FIXUP_WORD
)

const (
	MEMORY_SIZE   = 0x1000
	PROGRAM_START = 0x200
)
