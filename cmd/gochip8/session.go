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
	"context"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/lassandro/gochip8/pkg/config"
	"github.com/lassandro/gochip8/pkg/debugger"
	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/retroenv/retrogolib/log"
)

// session owns the machine. Every field is accessed from the goroutine that
// calls run, including the debugger handlers which run inside Step.
type session struct {
	mc     *machine.Machine
	cfg    config.Emulator
	logger *log.Logger
	rom    []byte
	dbg    *debugger.Debugger

	input      chan byte
	interrupts chan os.Signal
	output     *bufio.Writer
	keys       keypad
	sound      byte
	quit       bool
	lastcmd    []string
	closers    []io.Closer
}

func newSession(mc *machine.Machine, cfg config.Emulator, logger *log.Logger, rom []byte) *session {
	return &session{
		mc:         mc,
		cfg:        cfg,
		logger:     logger,
		rom:        rom,
		input:      make(chan byte, 64),
		interrupts: make(chan os.Signal, 1),
		output:     bufio.NewWriter(os.Stdout),
		keys:       keypad{hold: cfg.Hold},
	}
}

// readInput forwards every byte read from r until it fails.
func readInput(r io.Reader, out chan<- byte) {
	defer close(out)

	buffer := make([]byte, 64)

	for {
		n, err := r.Read(buffer)

		for _, b := range buffer[:n] {
			out <- b
		}

		if err != nil {
			return
		}
	}
}

func (s *session) start() error {
	if err := enterRawTerm(); err != nil {
		return err
	}

	signal.Notify(s.interrupts, os.Interrupt)
	go readInput(os.Stdin, s.input)

	s.output.WriteString(clearScreen + hideCursor)
	s.output.WriteString(renderFrame(&s.mc.State.Display))
	return s.output.Flush()
}

func (s *session) stop() error {
	signal.Stop(s.interrupts)

	s.output.WriteString(showCursor + "\r\n")
	s.output.Flush()

	return exitRawTerm()
}

func (s *session) close() {
	for _, closer := range s.closers {
		closer.Close()
	}
}

func (s *session) reset() error {
	s.sound = 0
	return s.mc.LoadBin(bytes.NewReader(s.rom))
}

func (s *session) handleInput(b byte, now time.Time) {
	if b == keyEscape {
		s.quit = true
		return
	}

	if key, ok := lookupKey(b); ok {
		s.keys.press(&s.mc.State.Keys, key, now)
	}
}

func (s *session) step(now time.Time) error {
	s.keys.release(&s.mc.State.Keys, now)

	if err := s.mc.Step(); err != nil {
		return err
	}

	if soundStarted(s.sound, s.mc.State.SoundTimer) {
		s.output.WriteString(bell)
	}
	s.sound = s.mc.State.SoundTimer

	if s.mc.State.DrawFlag {
		s.output.WriteString(renderFrame(&s.mc.State.Display))
	}

	if s.output.Buffered() > 0 {
		return s.output.Flush()
	}

	return nil
}

// run steps the machine at the configured rate until the program faults, Esc
// is typed or ctx is cancelled. An interrupt breaks into the debugger when one
// is attached.
func (s *session) run(ctx context.Context) error {
	if s.dbg != nil {
		s.debugREPL()
	}

	steps := time.NewTicker(s.cfg.Rate)
	defer steps.Stop()

	var timers <-chan time.Time

	if s.mc.Quirks.DecoupledTimers {
		ticker := time.NewTicker(config.TimerPeriod)
		defer ticker.Stop()
		timers = ticker.C
	}

	for !s.quit {
		select {
		case <-ctx.Done():
			return nil

		case <-s.interrupts:
			if s.dbg == nil {
				return nil
			}
			s.dbg.Break = true

		case b, ok := <-s.input:
			if !ok {
				return nil
			}
			s.handleInput(b, time.Now())

		case <-timers:
			s.mc.TickTimers()

		case now := <-steps.C:
			if err := s.step(now); err != nil {
				return err
			}
		}
	}

	return nil
}
