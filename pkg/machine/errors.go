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
	"errors"
	"fmt"
)

var (
	ErrUnknownOpcode     = errors.New("unknown opcode")
	ErrProgramTooLarge   = errors.New("program too large")
	ErrAddressOutOfRange = errors.New("address out of range")
	ErrFontWrite         = errors.New("write to font memory")
	ErrStackOverflow     = errors.New("stack overflow")
	ErrStackUnderflow    = errors.New("stack underflow")
)

type AccessType uint

const (
	AccessFetch AccessType = iota
	AccessRead
	AccessWrite
)

func (t AccessType) String() string {
	switch t {
	case AccessFetch:
		return "fetch"
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	}
	return "<invalid>"
}

type UnknownOpcodeError struct {
	Addr   uint16
	Opcode Opcode
}

func (err *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("[%#04x] unknown opcode %#04x", err.Addr, uint16(err.Opcode))
}

func (err *UnknownOpcodeError) Is(target error) bool {
	return target == ErrUnknownOpcode
}

type ProgramTooLargeError struct {
	Size  int
	Limit int
}

func (err *ProgramTooLargeError) Error() string {
	return fmt.Sprintf(
		"program too large\n\twant:<=%d bytes\n\thave:%d bytes",
		err.Limit,
		err.Size,
	)
}

func (err *ProgramTooLargeError) Is(target error) bool {
	return target == ErrProgramTooLarge
}

// AddressError reports a memory access outside the addressable space, or a
// store into the font area. The latter matches ErrFontWrite instead of
// ErrAddressOutOfRange.
type AddressError struct {
	// Address of the instruction performing the access
	Addr   uint16
	Target int
	Access AccessType
}

func (err *AddressError) fontWrite() bool {
	return err.Access == AccessWrite &&
		err.Target >= int(MEMSPACE_FONT) &&
		err.Target <= int(MEMSPACE_FONT_END)
}

func (err *AddressError) Error() string {
	if err.fontWrite() {
		return fmt.Sprintf(
			"[%#04x] write to font memory %#04x", err.Addr, err.Target,
		)
	}
	return fmt.Sprintf(
		"[%#04x] %s address out of range %#04x", err.Addr, err.Access, err.Target,
	)
}

func (err *AddressError) Is(target error) bool {
	if err.fontWrite() {
		return target == ErrFontWrite
	}
	return target == ErrAddressOutOfRange
}

type StackError struct {
	Addr     uint16
	Pointer  int8
	Overflow bool
}

func (err *StackError) Error() string {
	if err.Overflow {
		return fmt.Sprintf("[%#04x] stack overflow (sp=%d)", err.Addr, err.Pointer)
	}
	return fmt.Sprintf("[%#04x] stack underflow (sp=%d)", err.Addr, err.Pointer)
}

func (err *StackError) Is(target error) bool {
	if err.Overflow {
		return target == ErrStackOverflow
	}
	return target == ErrStackUnderflow
}
