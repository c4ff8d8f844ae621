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
	"bufio"
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/lassandro/gochip8/pkg/assembler"
	"github.com/lassandro/gochip8/pkg/config"
	"github.com/lassandro/gochip8/pkg/debugger"
	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

func TestRenderFrame(t *testing.T) {
	var display [machine.DISPLAY_SIZE]byte

	display[0] = 1                       // top only
	display[1+machine.DISPLAY_WIDTH] = 1 // bottom only
	display[2] = 1                       // both
	display[2+machine.DISPLAY_WIDTH] = 1
	display[63+31*machine.DISPLAY_WIDTH] = 1 // bottom right

	frame := renderFrame(&display)

	assert.True(t, strings.HasPrefix(frame, cursorHome))

	lines := strings.Split(strings.TrimPrefix(frame, cursorHome), "\r\n")
	assert.Equal(t, screenRows+1, len(lines))
	assert.Equal(t, "", lines[screenRows])

	first := []rune(lines[0])
	assert.Equal(t, screenColumns, len(first))
	assert.Equal(t, '▀', first[0])
	assert.Equal(t, '▄', first[1])
	assert.Equal(t, '█', first[2])
	assert.Equal(t, ' ', first[3])

	last := []rune(lines[screenRows-1])
	assert.Equal(t, '▄', last[screenColumns-1])
}

func TestSoundStarted(t *testing.T) {
	assert.True(t, soundStarted(0, 5))
	assert.False(t, soundStarted(5, 4))
	assert.False(t, soundStarted(1, 0))
	assert.False(t, soundStarted(0, 0))
}

func TestLookupKey(t *testing.T) {
	order := "1234qwerasdfzxcv"

	for i := 0; i < len(order); i++ {
		key, ok := lookupKey(order[i])
		assert.True(t, ok)
		assert.Equal(t, i, key)
	}

	key, ok := lookupKey('V')
	assert.True(t, ok)
	assert.Equal(t, 0xF, key)

	_, ok = lookupKey('p')
	assert.False(t, ok)
}

func TestKeypadHold(t *testing.T) {
	var keys [machine.KEY_COUNT]bool
	kp := keypad{hold: 100 * time.Millisecond}
	start := time.Unix(0, 0)

	kp.press(&keys, 0x5, start)
	assert.True(t, keys[0x5])

	kp.release(&keys, start.Add(50*time.Millisecond))
	assert.True(t, keys[0x5])

	// A repeat press extends the hold
	kp.press(&keys, 0x5, start.Add(80*time.Millisecond))
	kp.release(&keys, start.Add(120*time.Millisecond))
	assert.True(t, keys[0x5])

	kp.release(&keys, start.Add(180*time.Millisecond))
	assert.False(t, keys[0x5])
}

func TestSymbolFile(t *testing.T) {
	assert.Equal(t, "roms/pong.c8db", symbolFile("roms/pong.ch8"))
	assert.Equal(t, "pong.c8db", symbolFile("pong"))
}

func TestReadArguments(t *testing.T) {
	opts, args, err := readArguments([]string{
		"-rate", "2ms", "-timers", "60hz", "-shift-vy", "-seed", "7", "game.ch8",
	})

	assert.NoError(t, err)
	assert.Equal(t, []string{"game.ch8"}, args)
	assert.Equal(t, 2*time.Millisecond, opts.Rate)
	assert.Equal(t, config.TimersDecoupled, opts.Timers)
	assert.Equal(t, int64(7), opts.Seed)
	assert.Equal(t, machine.Quirks{ShiftUsesVY: true, DecoupledTimers: true}, opts.Quirks())
	assert.NoError(t, opts.Validate())

	_, _, err = readArguments([]string{"-rate", "fast"})
	assert.Error(t, err, `invalid value "fast" for flag -rate: parse error`)
}

func TestParseAddress(t *testing.T) {
	dbg := &debugger.Debugger{SymTable: assembler.NewSymTable("")}
	dbg.SymTable.Labels[0x230] = "draw"

	addr, err := parseAddress(dbg, "draw")
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x230), addr)

	addr, err = parseAddress(dbg, "0x2A0")
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x2A0), addr)

	_, err = parseAddress(dbg, "0x1000")
	assert.Error(t, err, "address 0x1000 is outside memory")

	_, err = parseAddress(dbg, "nowhere")
	assert.Error(t, err, "'nowhere' is neither an address nor a label")
}

func TestParseRange(t *testing.T) {
	dbg := &debugger.Debugger{}

	addr, count, err := parseRange(dbg, 0x200, 3, nil)
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x200), addr)
	assert.Equal(t, uint16(3), count)

	addr, count, err = parseRange(dbg, 0x200, 3, []string{"12"})
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x200), addr)
	assert.Equal(t, uint16(12), count)

	addr, count, err = parseRange(dbg, 0x200, 3, []string{"$300", "4"})
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x300), addr)
	assert.Equal(t, uint16(4), count)

	_, _, err = parseRange(dbg, 0x200, 3, []string{"bogus"})
	assert.Error(t, err, `strconv.ParseUint: parsing "bogus": invalid syntax`)
}

func TestSetRegister(t *testing.T) {
	var st machine.MachineState
	st.Reset()

	assert.NoError(t, setRegister(&st, "va", 0x12))
	assert.Equal(t, byte(0x12), st.V[0xA])

	assert.NoError(t, setRegister(&st, "I", 0x345))
	assert.Equal(t, uint16(0x345), st.Index)

	assert.NoError(t, setRegister(&st, "pc", 0x208))
	assert.Equal(t, uint16(0x208), st.Program)

	assert.NoError(t, setRegister(&st, "DT", 9))
	assert.Equal(t, byte(9), st.DelayTimer)

	assert.Error(t, setRegister(&st, "V0", 0x100), "0x100 does not fit in V0")
	assert.Error(t, setRegister(&st, "I", 0x1000), "0x1000 does not fit in I")
	assert.Error(t, setRegister(&st, "VG", 1), "invalid register 'VG'")
	assert.Error(t, setRegister(&st, "R0", 1), "invalid register 'R0'")
}

func newTestSession(t *testing.T, rom []byte) (*session, *bytes.Buffer) {
	t.Helper()

	mc := &machine.Machine{}
	assert.NoError(t, mc.LoadBin(bytes.NewReader(rom)))

	var output bytes.Buffer
	s := newSession(mc, config.DefaultEmulator(), log.NewTestLogger(t), rom)
	s.output = bufio.NewWriter(&output)

	return s, &output
}

func TestSessionStep(t *testing.T) {
	// LD V0, 2 | LD ST, V0 | LD F, V0 | DRW V1, V1, 5
	s, output := newTestSession(t, []byte{0x60, 0x02, 0xF0, 0x18, 0xF0, 0x29, 0xD1, 0x15})
	now := time.Unix(0, 0)

	assert.NoError(t, s.step(now))
	assert.Equal(t, 0, output.Len())

	assert.NoError(t, s.step(now))
	assert.Equal(t, bell, output.String())

	output.Reset()
	assert.NoError(t, s.step(now))
	assert.NoError(t, s.step(now))
	assert.True(t, strings.HasPrefix(output.String(), cursorHome))
}

func TestSessionInput(t *testing.T) {
	s, _ := newTestSession(t, []byte{0x00, 0xE0})
	now := time.Unix(0, 0)

	s.handleInput('w', now)
	assert.True(t, s.mc.State.Keys[0x5])

	s.handleInput(keyEscape, now)
	assert.True(t, s.quit)
}

func TestSessionReset(t *testing.T) {
	s, _ := newTestSession(t, []byte{0x60, 0x07})
	now := time.Unix(0, 0)

	assert.NoError(t, s.step(now))
	assert.Equal(t, byte(7), s.mc.State.V[0])

	assert.NoError(t, s.reset())
	assert.Equal(t, byte(0), s.mc.State.V[0])
	assert.Equal(t, uint16(machine.MEMSPACE_PROGRAM), s.mc.State.Program)
	assert.Equal(t, byte(0x60), s.mc.State.Memory[machine.MEMSPACE_PROGRAM])
}

func TestSessionFault(t *testing.T) {
	s, _ := newTestSession(t, []byte{0x00, 0xEE})

	err := s.step(time.Unix(0, 0))
	assert.Error(t, err, "[0x0200] stack underflow (sp=-1)")
	assert.Equal(t, uint16(machine.MEMSPACE_PROGRAM), s.mc.State.Program)
}

func TestReadLine(t *testing.T) {
	s, _ := newTestSession(t, nil)

	go readInput(strings.NewReader("break add $200\nc"), s.input)

	line, ok := s.readLine()
	assert.True(t, ok)
	assert.Equal(t, "break add $200", line)

	line, ok = s.readLine()
	assert.False(t, ok)
	assert.Equal(t, "c", line)
}
