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

package encoding

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidLiteral = errors.New("Invalid numeric literal")

// Decodes a hexidecimal string in the formats: 0xFFF, xFFF, $FFF
func DecodeHex(s string) (uint16, error) {
	switch {
	case strings.HasPrefix(s, "$"):
		s = s[1:]
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s = s[2:]
	case strings.HasPrefix(s, "x"), strings.HasPrefix(s, "X"):
		s = s[1:]
	default:
		return 0, errors.New("Invalid hex string")
	}

	result, err := strconv.ParseUint(s, 16, 16)

	if err != nil {
		return 0, err
	}

	return uint16(result), nil
}

// Decodes a base-10 string in the formats: #123, 123
func DecodeInt(s string) (uint16, error) {
	if i := strings.Index(s, "#"); i == 0 {
		s = s[1:]
	}

	result, err := strconv.ParseUint(s, 10, 16)

	if err != nil {
		return 0, err
	}

	return uint16(result), nil
}

// Decodes a base-2 string in the formats: %10100000, 0b10100000. Dots may
// stand in for zeroes so sprite rows read as pictures: %1.1.....
func DecodeBin(s string) (uint16, error) {
	switch {
	case strings.HasPrefix(s, "%"):
		s = s[1:]
	case strings.HasPrefix(s, "0b"), strings.HasPrefix(s, "0B"):
		s = s[2:]
	default:
		return 0, errors.New("Invalid binary string")
	}

	result, err := strconv.ParseUint(strings.ReplaceAll(s, ".", "0"), 2, 16)

	if err != nil {
		return 0, err
	}

	return uint16(result), nil
}

// Decodes any of the hex, binary or decimal formats above
func DecodeLiteral(s string) (uint16, error) {
	var result uint16
	var err error

	switch {
	case s == "":
		return 0, ErrInvalidLiteral
	case strings.HasPrefix(s, "%"), strings.HasPrefix(s, "0b"), strings.HasPrefix(s, "0B"):
		result, err = DecodeBin(s)
	case strings.ContainsAny(s[:1], "$xX"), strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		result, err = DecodeHex(s)
	default:
		result, err = DecodeInt(s)
	}

	if err != nil {
		return 0, ErrInvalidLiteral
	}

	return result, nil
}

func IsLiteral(s string) bool {
	_, err := DecodeLiteral(s)
	return err == nil
}
