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

package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lassandro/gochip8/pkg/debugger"
	"github.com/lassandro/gochip8/pkg/encoding"
	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/retroenv/retrogolib/log"
)

const debugHelp = `break    [add|list|remove|clear]  Manage breakpoints
watch    [add|list|remove|clear]  Manage watchpoints
register [Vx|I|PC|SP|DT|ST] [#]   Show or set registers
source   [0x###|label] [#]        Show source lines
disasm   [0x###|label] [#]        Disassemble memory
labels                            List labels
jump     [0x###|label]            Set PC
memory   [0x###] [#]              Dump memory
set      [0x###] [0x##]           Write a byte
continue | next | reset | clear | quit`

// parseAddress accepts a hex literal or a label name.
func parseAddress(dbg *debugger.Debugger, arg string) (uint16, error) {
	if addr, ok := dbg.Lookup(arg); ok {
		return addr, nil
	}

	addr, err := encoding.DecodeHex(arg)

	if err != nil {
		return 0, fmt.Errorf("'%s' is neither an address nor a label", arg)
	}

	if addr >= machine.MEMORY_SIZE {
		return 0, fmt.Errorf("address %#04x is outside memory", addr)
	}

	return addr, nil
}

func parseCount(arg string) (uint16, error) {
	value, err := strconv.ParseUint(arg, 10, 16)

	if err != nil {
		return 0, err
	}

	return uint16(value), nil
}

// parseRange reads the optional [addr] [count] arguments of the listing
// commands. A lone decimal argument is taken as a count from PC.
func parseRange(dbg *debugger.Debugger, pc uint16, count uint16, args []string) (uint16, uint16, error) {
	addr := pc

	if len(args) > 0 {
		var err error

		if addr, err = parseAddress(dbg, args[0]); err != nil {
			if count, err = parseCount(args[0]); err != nil {
				return 0, 0, err
			}
			addr = pc
		}
	}

	if len(args) > 1 {
		var err error

		if count, err = parseCount(args[1]); err != nil {
			return 0, 0, err
		}
	}

	return addr, count, nil
}

func indexFormat(count int) string {
	digits := math.Floor(math.Log10(float64(count + 1)))
	return fmt.Sprintf("#%%0%dd: %%#04x %%s\n", int64(digits)+1)
}

func (s *session) debugBreak(dbg *debugger.Debugger, args []string) {
	const usage = "break [add|list|remove|clear]"

	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "break add [0x###|label]"

		if len(args) != 1 {
			fmt.Println(usage)
			return
		}

		addr, err := parseAddress(dbg, args[0])

		if err != nil {
			s.logger.Error("Invalid breakpoint", err)
			return
		}

		for _, breakpoint := range dbg.Breakpoints {
			if breakpoint.Addr == addr {
				return
			}
		}

		dbg.Breakpoints = append(dbg.Breakpoints, debugger.Breakpoint{Addr: addr})
		fmt.Printf("Breakpoint added [%#04x]\n", addr)

	case "l", "ls", "list":
		format := indexFormat(len(dbg.Breakpoints))

		for i, breakpoint := range dbg.Breakpoints {
			label := ""
			if dbg.SymTable != nil {
				label = dbg.SymTable.Labels[breakpoint.Addr]
			}
			fmt.Printf(format, i, breakpoint.Addr, label)
		}

	case "r", "rm", "remove":
		const usage = "break remove [#]"

		if len(args) != 1 {
			fmt.Println(usage)
			return
		}

		i, err := strconv.ParseInt(args[0], 10, 64)

		if err != nil || i < 0 || i >= int64(len(dbg.Breakpoints)) {
			fmt.Println("Invalid breakpoint number")
			return
		}

		dbg.Breakpoints[i] = dbg.Breakpoints[len(dbg.Breakpoints)-1]
		dbg.Breakpoints = dbg.Breakpoints[:len(dbg.Breakpoints)-1]
		fmt.Printf("Breakpoint removed [%d]\n", i)

	case "clear":
		dbg.Breakpoints = nil
		fmt.Println("Breakpoints reset")

	default:
		fmt.Printf("break: '%s' is not a valid command\n%s\n", cmd, usage)
	}
}

func (s *session) debugWatch(dbg *debugger.Debugger, args []string) {
	const usage = "watch [add|list|remove|clear]"

	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "watch add [0x###|label] [read|write|readwrite]"

		if len(args) != 2 {
			fmt.Println(usage)
			return
		}

		addr, err := parseAddress(dbg, args[0])

		if err != nil {
			s.logger.Error("Invalid watchpoint", err)
			return
		}

		var wtype debugger.WatchpointType

		switch args[1] {
		case "r", "read":
			wtype = debugger.ReadWatch
		case "w", "write":
			wtype = debugger.WriteWatch
		case "rw", "rwrite", "readwrite":
			wtype = debugger.ReadWriteWatch
		default:
			fmt.Println(usage)
			return
		}

		for _, watchpoint := range dbg.Watchpoints {
			if watchpoint.Addr == addr && watchpoint.Type == wtype {
				return
			}
		}

		dbg.Watchpoints = append(
			dbg.Watchpoints,
			debugger.Watchpoint{Addr: addr, Type: wtype},
		)

		fmt.Printf("Watchpoint added [%#04x] (%s)\n", addr, wtype)

	case "l", "ls", "list":
		format := indexFormat(len(dbg.Watchpoints))

		for i, watchpoint := range dbg.Watchpoints {
			fmt.Printf(format, i, watchpoint.Addr, watchpoint.Type)
		}

	case "r", "rm", "remove":
		const usage = "watch remove [#]"

		if len(args) != 1 {
			fmt.Println(usage)
			return
		}

		i, err := strconv.ParseInt(args[0], 10, 64)

		if err != nil || i < 0 || i >= int64(len(dbg.Watchpoints)) {
			fmt.Println("Invalid watchpoint number")
			return
		}

		dbg.Watchpoints[i] = dbg.Watchpoints[len(dbg.Watchpoints)-1]
		dbg.Watchpoints = dbg.Watchpoints[:len(dbg.Watchpoints)-1]
		fmt.Printf("Watchpoint removed [%d]\n", i)

	case "clear":
		dbg.Watchpoints = nil
		fmt.Println("Watchpoints reset")

	default:
		fmt.Printf("watch: '%s' is not a valid command\n%s\n", cmd, usage)
	}
}

// setRegister writes value to the named register, checking it fits.
func setRegister(mc *machine.MachineState, name string, value uint16) error {
	switch name = strings.ToUpper(name); name {
	case "I":
		if value > machine.MEMSPACE_END {
			return fmt.Errorf("%#x does not fit in %s", value, name)
		}
		mc.Index = value
		return nil

	case "PC":
		if value > machine.MEMSPACE_END {
			return fmt.Errorf("%#x does not fit in %s", value, name)
		}
		mc.Program = value
		return nil
	}

	if value > 0xFF {
		return fmt.Errorf("%#x does not fit in %s", value, name)
	}

	switch name {
	case "DT":
		mc.DelayTimer = byte(value)
	case "ST":
		mc.SoundTimer = byte(value)
	default:
		if len(name) != 2 || name[0] != 'V' {
			return fmt.Errorf("invalid register '%s'", name)
		}

		index := strings.IndexByte("0123456789ABCDEF", name[1])
		if index < 0 {
			return fmt.Errorf("invalid register '%s'", name)
		}

		mc.V[index] = byte(value)
	}

	return nil
}

func (s *session) debugReg(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	const usage = "register [Vx|I|PC|DT|ST] [0x###]"

	if len(args) == 0 {
		dbg.PrintRegisters(mc)
		return
	}

	if len(args) != 2 {
		fmt.Println(usage)
		return
	}

	value, err := encoding.DecodeLiteral(args[1])

	if err != nil {
		s.logger.Error("Invalid value", err)
		return
	}

	if err := setRegister(mc, args[0], value); err != nil {
		s.logger.Error("Setting register failed", err)
		return
	}

	fmt.Printf("\033[1m%s:\033[0m %#04x\n", strings.ToUpper(args[0]), value)
}

func (s *session) debugSource(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	const usage = "source [0x###|label] [#]"

	if len(args) > 2 {
		fmt.Println(usage)
		return
	}

	addr, count, err := parseRange(dbg, mc.Program, 3, args)

	if err != nil {
		s.logger.Error("Invalid range", err)
		return
	}

	dbg.PrintSource(addr, count)
}

func (s *session) debugDisasm(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	const usage = "disasm [0x###|label] [#]"

	if len(args) > 2 {
		fmt.Println(usage)
		return
	}

	addr, count, err := parseRange(dbg, mc.Program, 8, args)

	if err != nil {
		s.logger.Error("Invalid range", err)
		return
	}

	dbg.PrintDisassembly(mc, addr, count)
}

func (s *session) debugLabels(dbg *debugger.Debugger, args []string) {
	if len(args) > 0 {
		fmt.Println("labels")
		return
	}

	if dbg.SymTable == nil {
		fmt.Println("No symbol table loaded")
		return
	}

	for _, addr := range dbg.SortedLabels() {
		fmt.Printf("\033[1m[%#04x]\033[0m %s\n", addr, dbg.SymTable.Labels[addr])
	}
}

func (s *session) debugJump(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	const usage = "jump [0x###|label]"

	if len(args) != 1 {
		fmt.Println(usage)
		return
	}

	addr, err := parseAddress(dbg, args[0])

	if err != nil {
		s.logger.Error("Invalid jump target", err)
		return
	}

	mc.Program = addr
	fmt.Printf("\033[1mPC:\033[0m %#04x\n", addr)
}

func (s *session) debugMemory(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	const usage = "memory [0x###|label] [#]"

	if len(args) > 2 {
		fmt.Println(usage)
		return
	}

	addr, count, err := parseRange(dbg, mc.Program, 8, args)

	if err != nil {
		s.logger.Error("Invalid range", err)
		return
	}

	dbg.PrintMem(mc, addr, count)
}

func (s *session) debugSet(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	const usage = "set [0x###] [0x##]"

	if len(args) != 2 {
		fmt.Println(usage)
		return
	}

	addr, err := parseAddress(dbg, args[0])

	if err != nil {
		s.logger.Error("Invalid address", err)
		return
	}

	value, err := encoding.DecodeLiteral(args[1])

	if err == nil && value > 0xFF {
		err = fmt.Errorf("%w: %s does not fit a byte", encoding.ErrInvalidLiteral, args[1])
	}

	if err != nil {
		s.logger.Error("Invalid byte", err, log.String("value", args[1]))
		return
	}

	mc.Memory[addr] = byte(value)
	dbg.PrintMem(mc, addr, 1)
}

// readLine collects input bytes up to the end of a line. It returns false
// once stdin is closed.
func (s *session) readLine() (string, bool) {
	var line []byte

	for b := range s.input {
		if b == '\n' || b == '\r' {
			return string(line), true
		}
		line = append(line, b)
	}

	return string(line), false
}

// Discards keys typed while the program was running
func (s *session) drainInput() {
	for {
		select {
		case _, ok := <-s.input:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (s *session) debugREPL() {
	dbg := s.dbg
	mc := s.mc

	s.output.WriteString(showCursor)
	s.output.Flush()

	if err := exitRawTerm(); err != nil {
		s.logger.Error("Restoring terminal failed", err)
	}

	defer func() {
		if err := enterRawTerm(); err != nil {
			s.logger.Error("Entering raw terminal mode failed", err)
		}
		s.output.WriteString(hideCursor + clearScreen)
		s.output.WriteString(renderFrame(&mc.State.Display))
		s.output.Flush()
	}()

	s.drainInput()

	for {
		fmt.Print("\033[1;30m(dbg)\033[0m ")

		text, ok := s.readLine()

		if !ok {
			fmt.Println()
			s.quit = true
			return
		}

		args := strings.Fields(text)

		if len(args) == 0 {
			if len(s.lastcmd) == 0 {
				continue
			}
			args = s.lastcmd
		} else {
			s.lastcmd = make([]string, len(args))
			copy(s.lastcmd, args)
		}

		cmd := args[0]
		args = args[1:]

		switch cmd {
		case "b", "bp", "break", "breakpoint":
			s.debugBreak(dbg, args)

		case "w", "wp", "watch", "watchpoint":
			s.debugWatch(dbg, args)

		case "r", "reg", "register", "registers":
			s.debugReg(dbg, &mc.State, args)

		case "s", "src", "source":
			s.debugSource(dbg, &mc.State, args)

		case "d", "dis", "disasm":
			s.debugDisasm(dbg, &mc.State, args)

		case "l", "label", "labels":
			s.debugLabels(dbg, args)

		case "j", "jmp", "jump":
			s.debugJump(dbg, &mc.State, args)

		case "m", "mem", "memory":
			s.debugMemory(dbg, &mc.State, args)

		case "set":
			s.debugSet(dbg, &mc.State, args)

		case "c", "continue":
			dbg.Break = false
			return

		case "n", "next":
			dbg.Break = true
			return

		case "q", "quit", "exit":
			s.quit = true
			return

		case "clear":
			fmt.Print("\033[H\033[2J")

		case "reset":
			if err := s.reset(); err != nil {
				s.logger.Error("Reset failed", err)
			} else {
				fmt.Println("Machine reset")
			}

		case "h", "help":
			fmt.Println(debugHelp)

		default:
			fmt.Printf("error: '%s' is not a valid command\n", cmd)
		}
	}
}

func (s *session) handleBreak(dbg *debugger.Debugger, mc *machine.Machine) {
	if !dbg.Break {
		fmt.Print("\r\nProgram stopped\r\n")
	}

	if dbg.Source != nil {
		dbg.PrintSource(mc.State.Program, 1)
	} else {
		dbg.PrintDisassembly(&mc.State, mc.State.Program, 1)
	}

	s.debugREPL()
}

func (s *session) handleRead(addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
	fmt.Printf("\r\nProgram stopped, read [%#04x]\r\n", addr)
	dbg.PrintMem(&mc.State, addr, 1)
	s.debugREPL()
}

func (s *session) handleWrite(addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
	fmt.Printf("\r\nProgram stopped, write [%#04x]\r\n", addr)
	dbg.PrintMem(&mc.State, addr, 1)
	s.debugREPL()
}
