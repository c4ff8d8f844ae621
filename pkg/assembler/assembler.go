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

import (
	"bufio"
	"io"
	"strings"
	"unicode"

	"github.com/lassandro/gochip8/pkg/encoding"
)

type operand struct {
	Type  OperandType
	Value uint16
	Label string
	Token *Token
}

type fixup struct {
	Label    string
	Addr     uint16
	Type     FixupType
	Position Cursor
}

type form struct {
	Operands []OperandType
	Base     uint16
	Encode   func(base uint16, args []uint16) uint16
}

func ops(types ...OperandType) []OperandType {
	return types
}

func encodeNone(base uint16, args []uint16) uint16 {
	return base
}

func encodeX(base uint16, args []uint16) uint16 {
	return base | args[0]<<8
}

// Register in the second operand slot, i.e. LD DT, Vx
func encodeLastX(base uint16, args []uint16) uint16 {
	return base | args[len(args)-1]<<8
}

func encodeXY(base uint16, args []uint16) uint16 {
	return base | args[0]<<8 | args[1]<<4
}

func encodeXNN(base uint16, args []uint16) uint16 {
	return base | args[0]<<8 | args[1]
}

func encodeNNN(base uint16, args []uint16) uint16 {
	return base | args[len(args)-1]
}

func encodeXYN(base uint16, args []uint16) uint16 {
	return base | args[0]<<8 | args[1]<<4 | args[2]
}

const (
	reg   = OPERAND_REGISTER
	addr  = OPERAND_ADDR
	imm8  = OPERAND_BYTE
	imm4  = OPERAND_NIBBLE
	index = OPERAND_INDEX
	indir = OPERAND_INDIRECT
	delay = OPERAND_DELAY
	sound = OPERAND_SOUND
	key   = OPERAND_KEY
	font  = OPERAND_FONT
	bcd   = OPERAND_BCD
	vzero = OPERAND_V0
)

var forms = map[string][]form{
	"CLS":  {{nil, 0x00E0, encodeNone}},
	"RET":  {{nil, 0x00EE, encodeNone}},
	"SYS":  {{ops(addr), 0x0000, encodeNNN}},
	"JP":   {{ops(addr), 0x1000, encodeNNN}, {ops(vzero, addr), 0xB000, encodeNNN}},
	"CALL": {{ops(addr), 0x2000, encodeNNN}},
	"SE":   {{ops(reg, imm8), 0x3000, encodeXNN}, {ops(reg, reg), 0x5000, encodeXY}},
	"SNE":  {{ops(reg, imm8), 0x4000, encodeXNN}, {ops(reg, reg), 0x9000, encodeXY}},
	"LD": {
		{ops(reg, imm8), 0x6000, encodeXNN},
		{ops(reg, reg), 0x8000, encodeXY},
		{ops(index, addr), 0xA000, encodeNNN},
		{ops(reg, delay), 0xF007, encodeX},
		{ops(reg, key), 0xF00A, encodeX},
		{ops(delay, reg), 0xF015, encodeLastX},
		{ops(sound, reg), 0xF018, encodeLastX},
		{ops(font, reg), 0xF029, encodeLastX},
		{ops(bcd, reg), 0xF033, encodeLastX},
		{ops(indir, reg), 0xF055, encodeLastX},
		{ops(reg, indir), 0xF065, encodeX},
	},
	"ADD": {
		{ops(reg, imm8), 0x7000, encodeXNN},
		{ops(reg, reg), 0x8004, encodeXY},
		{ops(index, reg), 0xF01E, encodeLastX},
	},
	"OR":   {{ops(reg, reg), 0x8001, encodeXY}},
	"AND":  {{ops(reg, reg), 0x8002, encodeXY}},
	"XOR":  {{ops(reg, reg), 0x8003, encodeXY}},
	"SUB":  {{ops(reg, reg), 0x8005, encodeXY}},
	"SUBN": {{ops(reg, reg), 0x8007, encodeXY}},
	"SHR":  {{ops(reg), 0x8006, encodeX}, {ops(reg, reg), 0x8006, encodeXY}},
	"SHL":  {{ops(reg), 0x800E, encodeX}, {ops(reg, reg), 0x800E, encodeXY}},
	"RND":  {{ops(reg, imm8), 0xC000, encodeXNN}},
	"DRW":  {{ops(reg, reg, imm4), 0xD000, encodeXYN}},
	"SKP":  {{ops(reg), 0xE09E, encodeX}},
	"SKNP": {{ops(reg), 0xE0A1, encodeX}},
}

func parseDirective(ident string) DirectiveType {
	if strings.EqualFold(ident, ".ORG") {
		return DIRECTIVE_ORG
	} else if strings.EqualFold(ident, ".DB") {
		return DIRECTIVE_DB
	} else if strings.EqualFold(ident, ".DW") {
		return DIRECTIVE_DW
	} else if strings.EqualFold(ident, ".END") {
		return DIRECTIVE_END
	}

	return DIRECTIVE_INVALID
}

func isMnemonic(ident string) bool {
	_, ok := forms[strings.ToUpper(ident)]
	return ok
}

func parseRegister(ident string) (uint16, bool) {
	if len(ident) != 2 || (ident[0] != 'V' && ident[0] != 'v') {
		return 0, false
	}

	digit := strings.IndexByte("0123456789ABCDEF", byte(unicode.ToUpper(rune(ident[1]))))

	if digit < 0 {
		return 0, false
	}

	return uint16(digit), true
}

func parseKeyword(ident string) OperandType {
	if _, ok := parseRegister(ident); ok {
		return OPERAND_REGISTER
	}

	switch strings.ToUpper(ident) {
	case "I":
		return OPERAND_INDEX
	case "[I]":
		return OPERAND_INDIRECT
	case "DT":
		return OPERAND_DELAY
	case "ST":
		return OPERAND_SOUND
	case "K":
		return OPERAND_KEY
	case "F":
		return OPERAND_FONT
	case "B":
		return OPERAND_BCD
	}

	return OPERAND_INVALID
}

// Registers and the special operand names cannot be used as labels
func isReserved(ident string) bool {
	return parseKeyword(ident) != OPERAND_INVALID || isMnemonic(ident)
}

func parseOperand(token *Token) (operand, error) {
	switch token.Type {
	case TOKEN_LITERAL:
		value, err := encoding.DecodeLiteral(token.Value)

		if err != nil {
			return operand{}, &InvalidLiteralError{token.Position}
		}

		return operand{Type: OPERAND_NUMBER, Value: value, Token: token}, nil

	case TOKEN_IDENT:
		switch kind := parseKeyword(token.Value); kind {
		case OPERAND_REGISTER:
			value, _ := parseRegister(token.Value)
			return operand{Type: kind, Value: value, Token: token}, nil
		case OPERAND_INVALID:
			if strings.ContainsAny(token.Value, "[]") || isMnemonic(token.Value) {
				break
			}
			return operand{Type: OPERAND_LABEL, Label: token.Value, Token: token}, nil
		default:
			return operand{Type: kind, Token: token}, nil
		}
	}

	return operand{}, &UnknownIdentifierError{token.Position, token.Value}
}

func accepts(slot OperandType, arg *operand) bool {
	switch slot {
	case OPERAND_V0:
		return arg.Type == OPERAND_REGISTER && arg.Value == 0
	case OPERAND_ADDR:
		return arg.Type == OPERAND_NUMBER || arg.Type == OPERAND_LABEL
	case OPERAND_BYTE, OPERAND_NIBBLE:
		return arg.Type == OPERAND_NUMBER
	}

	return slot == arg.Type
}

func limit(slot OperandType) uint16 {
	switch slot {
	case OPERAND_ADDR:
		return 0xFFF
	case OPERAND_BYTE:
		return 0xFF
	case OPERAND_NIBBLE:
		return 0xF
	}

	return 0xFFFF
}

func isIdentChar(char rune) bool {
	return unicode.IsLetter(char) || unicode.IsDigit(char) ||
		char == '_' || char == '.' || char == '[' || char == ']'
}

// tokenize splits one source line. Operands are separated by whitespace or
// commas, ';' starts a comment and a trailing ':' marks a label.
func tokenize(line string, cursor Cursor) (tokens []Token, errs []error) {
	var builder strings.Builder
	var tokenType = TOKEN_NONE
	var tokenStart Cursor

	flush := func() {
		if builder.Len() > 0 {
			tokenStart.Size = int64(builder.Len())
			tokens = append(tokens, Token{
				Type:     tokenType,
				Position: tokenStart,
				Value:    builder.String(),
			})
			builder.Reset()
		}

		tokenType = TOKEN_NONE
	}

scan:
	for i, char := range line {
		position := Cursor{
			Line:     cursor.Line,
			Column:   i + 1,
			Byte:     cursor.LineByte + int64(i),
			Size:     1,
			LineByte: cursor.LineByte,
		}

		if char > unicode.MaxASCII {
			errs = append(errs, &OversizedCharacterError{position})
			continue
		}

		switch {
		case unicode.IsSpace(char), char == ',':
			flush()

		// Comments
		case char == ';':
			flush()
			break scan

		// Label declaration
		case char == ':':
			if tokenType == TOKEN_IDENT {
				tokenType = TOKEN_LABEL
				flush()
			} else {
				errs = append(errs, &UnexpectedCharacterError{position, char})
			}

		case tokenType == TOKEN_NONE:
			switch {
			case char == '.':
				tokenType = TOKEN_DIRECTIVE
			case char == '$', char == '%', char == '#', unicode.IsDigit(char):
				tokenType = TOKEN_LITERAL
			case unicode.IsLetter(char), char == '_', char == '[':
				tokenType = TOKEN_IDENT
			default:
				errs = append(errs, &UnexpectedCharacterError{position, char})
				continue
			}

			tokenStart = position
			builder.WriteRune(char)

		case isIdentChar(char):
			builder.WriteRune(char)

		default:
			errs = append(errs, &UnexpectedCharacterError{position, char})
		}
	}

	flush()
	return tokens, errs
}

type assembly struct {
	memory   [MEMORY_SIZE]byte
	program  uint32
	end      uint32
	labels   map[string]uint16
	fixups   []fixup
	symtable *SymTable
	errs     []error
	done     bool
}

func (asm *assembly) emit(value byte, position Cursor) bool {
	if asm.program >= MEMORY_SIZE {
		asm.errs = append(asm.errs, &OversizedBinaryError{position})
		return false
	}

	asm.memory[asm.program] = value
	asm.program++

	if asm.program > asm.end {
		asm.end = asm.program
	}

	return true
}

func (asm *assembly) emitWord(value uint16, position Cursor) bool {
	if asm.program+1 >= MEMORY_SIZE {
		asm.errs = append(asm.errs, &OversizedBinaryError{position})
		return false
	}

	asm.emit(byte(value>>8), position)
	asm.emit(byte(value), position)
	return true
}

func (asm *assembly) mark(position Cursor) {
	if asm.symtable != nil && asm.program < MEMORY_SIZE {
		asm.symtable.Symbols[uint16(asm.program)] = position.LineByte
	}
}

func (asm *assembly) defineLabel(token *Token) {
	if isReserved(token.Value) {
		asm.errs = append(
			asm.errs, &UnknownIdentifierError{token.Position, token.Value},
		)
		return
	}

	if _, exists := asm.labels[token.Value]; exists {
		asm.errs = append(
			asm.errs, &RedeclaredLabelError{token.Position, token.Value},
		)
		return
	}

	asm.labels[token.Value] = uint16(asm.program)

	if asm.symtable != nil {
		asm.symtable.Labels[uint16(asm.program)] = token.Value
	}
}

func (asm *assembly) line(tokens []Token) {
	if len(tokens) == 0 {
		return
	}

	first := &tokens[0]

	isLabel := first.Type == TOKEN_LABEL
	if first.Type == TOKEN_IDENT && !isMnemonic(first.Value) {
		isLabel = len(tokens) == 1 ||
			tokens[1].Type == TOKEN_DIRECTIVE ||
			(tokens[1].Type == TOKEN_IDENT && isMnemonic(tokens[1].Value))
	}

	if isLabel {
		asm.defineLabel(first)
		tokens = tokens[1:]

		if len(tokens) == 0 {
			return
		}
	}

	keyword := &tokens[0]
	operands := tokens[1:]

	switch keyword.Type {
	case TOKEN_DIRECTIVE:
		asm.directive(keyword, operands)
		return

	case TOKEN_IDENT:
		if candidates, ok := forms[strings.ToUpper(keyword.Value)]; ok {
			asm.mark(keyword.Position)
			asm.instruction(keyword, candidates, operands)
			return
		}
	}

	asm.errs = append(
		asm.errs, &UnknownIdentifierError{keyword.Position, keyword.Value},
	)
}

func (asm *assembly) parseOperands(tokens []Token) ([]operand, bool) {
	args := make([]operand, 0, len(tokens))

	for i := range tokens {
		arg, err := parseOperand(&tokens[i])

		if err != nil {
			asm.errs = append(asm.errs, err)
			return nil, false
		}

		args = append(args, arg)
	}

	return args, true
}

func (asm *assembly) instruction(keyword *Token, candidates []form, tokens []Token) {
	args, ok := asm.parseOperands(tokens)
	if !ok {
		return
	}

	var required [][]OperandType

	for _, f := range candidates {
		if len(f.Operands) != len(args) {
			continue
		}

		required = append(required, f.Operands)

		matched := true
		for i := range args {
			if !accepts(f.Operands[i], &args[i]) {
				matched = false
				break
			}
		}

		if !matched {
			continue
		}

		values := make([]uint16, len(args))
		var pending *operand

		for i := range args {
			if args[i].Type == OPERAND_LABEL {
				pending = &args[i]
				continue
			}

			if bound := limit(f.Operands[i]); args[i].Value > bound {
				asm.errs = append(asm.errs, &OversizedLiteralError{
					args[i].Token.Position, bound, args[i].Value,
				})
				return
			}

			values[i] = args[i].Value
		}

		at := uint16(asm.program)

		if asm.emitWord(f.Encode(f.Base, values), keyword.Position) && pending != nil {
			asm.fixups = append(asm.fixups, fixup{
				Label:    pending.Label,
				Addr:     at,
				Type:     FIXUP_ADDR,
				Position: pending.Token.Position,
			})
		}

		return
	}

	if len(required) == 0 {
		asm.errs = append(asm.errs, &InvalidNumArgumentsError{
			keyword.Position, len(candidates[0].Operands), len(args),
		})
		return
	}

	received := make([]OperandType, 0, len(args))
	for _, arg := range args {
		received = append(received, arg.Type)
	}

	asm.errs = append(asm.errs, &InvalidOperandError{
		keyword.Position, required, received,
	})
}

func (asm *assembly) directive(keyword *Token, tokens []Token) {
	directive := parseDirective(keyword.Value)

	if directive == DIRECTIVE_INVALID {
		asm.errs = append(
			asm.errs, &UnknownIdentifierError{keyword.Position, keyword.Value},
		)
		return
	}

	if directive == DIRECTIVE_END {
		if count := len(tokens); count != 0 {
			asm.errs = append(
				asm.errs, &InvalidNumArgumentsError{keyword.Position, 0, count},
			)
		}

		asm.done = true
		return
	}

	args, ok := asm.parseOperands(tokens)
	if !ok {
		return
	}

	switch directive {
	// .ORG 0x###
	case DIRECTIVE_ORG:
		if count := len(args); count != 1 {
			asm.errs = append(
				asm.errs, &InvalidNumArgumentsError{keyword.Position, 1, count},
			)
			return
		}

		if args[0].Type != OPERAND_NUMBER {
			asm.errs = append(asm.errs, &InvalidOperandError{
				keyword.Position,
				[][]OperandType{ops(OPERAND_NUMBER)},
				[]OperandType{args[0].Type},
			})
			return
		}

		origin := args[0].Value

		if origin < PROGRAM_START || origin >= MEMORY_SIZE {
			asm.errs = append(
				asm.errs, &InvalidOriginError{args[0].Token.Position, origin},
			)
			return
		}

		asm.program = uint32(origin)

	// .DB #, ...
	case DIRECTIVE_DB:
		if len(args) == 0 {
			asm.errs = append(
				asm.errs, &InvalidNumArgumentsError{keyword.Position, 1, 0},
			)
			return
		}

		asm.mark(keyword.Position)

		for _, arg := range args {
			if arg.Type != OPERAND_NUMBER {
				asm.errs = append(asm.errs, &InvalidOperandError{
					arg.Token.Position,
					[][]OperandType{ops(OPERAND_BYTE)},
					[]OperandType{arg.Type},
				})
				return
			}

			if arg.Value > 0xFF {
				asm.errs = append(asm.errs, &OversizedLiteralError{
					arg.Token.Position, 0xFF, arg.Value,
				})
				return
			}

			if !asm.emit(byte(arg.Value), keyword.Position) {
				return
			}
		}

	// .DW #|label, ...
	case DIRECTIVE_DW:
		if len(args) == 0 {
			asm.errs = append(
				asm.errs, &InvalidNumArgumentsError{keyword.Position, 1, 0},
			)
			return
		}

		asm.mark(keyword.Position)

		for _, arg := range args {
			if arg.Type != OPERAND_NUMBER && arg.Type != OPERAND_LABEL {
				asm.errs = append(asm.errs, &InvalidOperandError{
					arg.Token.Position,
					[][]OperandType{ops(OPERAND_ADDR)},
					[]OperandType{arg.Type},
				})
				return
			}

			at := uint16(asm.program)

			if !asm.emitWord(arg.Value, keyword.Position) {
				return
			}

			if arg.Type == OPERAND_LABEL {
				asm.fixups = append(asm.fixups, fixup{
					Label:    arg.Label,
					Addr:     at,
					Type:     FIXUP_WORD,
					Position: arg.Token.Position,
				})
			}
		}
	}
}

func (asm *assembly) resolve() {
	for _, f := range asm.fixups {
		target, exists := asm.labels[f.Label]

		if !exists {
			asm.errs = append(asm.errs, &UnknownLabelError{f.Position, f.Label})
			continue
		}

		word := uint16(asm.memory[f.Addr])<<8 | uint16(asm.memory[f.Addr+1])

		switch f.Type {
		case FIXUP_ADDR:
			if target > 0xFFF {
				asm.errs = append(
					asm.errs, &OversizedLiteralError{f.Position, 0xFFF, target},
				)
				continue
			}
			word |= target
		case FIXUP_WORD:
			word = target
		}

		asm.memory[f.Addr] = byte(word >> 8)
		asm.memory[f.Addr+1] = byte(word)
	}
}

// AssembleSource assembles CHIP-8 source into a program image starting at
// PROGRAM_START. Errors are collected for every line rather than stopping at
// the first one. When symtable is not nil it receives the source offset of
// every emitted line and the address of every label.
func AssembleSource(input io.Reader, symtable *SymTable) (result []byte, errs []error) {
	asm := assembly{
		program:  PROGRAM_START,
		end:      PROGRAM_START,
		labels:   make(map[string]uint16),
		symtable: symtable,
	}

	var cursor = Cursor{Line: 1}
	var scanner = bufio.NewScanner(input)

	for !asm.done && scanner.Scan() {
		line := scanner.Text()

		cursor.Size = int64(len(line))
		cursor.Byte = cursor.LineByte

		tokens, lineErrs := tokenize(line, cursor)

		// Pass any potential assembler errors if we already had parser errors
		if len(lineErrs) > 0 {
			asm.errs = append(asm.errs, lineErrs...)
		} else {
			asm.line(tokens)
		}

		cursor.Line++
		cursor.LineByte += int64(len(line) + 1)
	}

	if err := scanner.Err(); err != nil {
		asm.errs = append(asm.errs, err)
	}

	asm.resolve()

	result = make([]byte, asm.end-PROGRAM_START)
	copy(result, asm.memory[PROGRAM_START:asm.end])

	return result, asm.errs
}
