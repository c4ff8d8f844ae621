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
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/lassandro/gochip8/pkg/assembler"
	"github.com/lassandro/gochip8/pkg/config"
	"github.com/lassandro/gochip8/pkg/debugger"
	"github.com/lassandro/gochip8/pkg/disasm"
	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

type options struct {
	config.Emulator

	help    bool
	debug   bool
	verbose bool
	quiet   bool
	trace   bool
	dump    bool
	version bool
}

const usage = "gochip8 [options] filename"

func readArguments(args []string) (options, []string, error) {
	opts := options{Emulator: config.DefaultEmulator()}
	flags := flag.NewFlagSet("gochip8", flag.ContinueOnError)

	flags.BoolVar(&opts.help, "help", false, "Displays command usage")
	flags.BoolVar(&opts.debug, "debug", false, "Runs the machine in a debug CLI")
	flags.BoolVar(&opts.verbose, "verbose", false, "Enables debug logging")
	flags.BoolVar(&opts.quiet, "quiet", false, "Only reports errors")
	flags.BoolVar(&opts.trace, "trace", false, "Logs every executed instruction")
	flags.BoolVar(&opts.dump, "dump", false, "Prints a disassembly of the program and exits")
	flags.BoolVar(&opts.version, "version", false, "Prints the version and exits")
	flags.DurationVar(&opts.Rate, "rate", opts.Rate, "Delay between two instructions")
	flags.DurationVar(&opts.Hold, "hold", opts.Hold, "How long a key stays down after it is typed")
	flags.BoolVar(&opts.ShiftUsesVY, "shift-vy", false, "8XY6/8XYE shift VY into VX")
	flags.StringVar(
		&opts.Timers, "timers", opts.Timers,
		fmt.Sprintf(
			"Timer mode, %s ticks once per instruction, %s ticks at 60Hz",
			config.TimersCoupled, config.TimersDecoupled,
		),
	)
	flags.Int64Var(&opts.Seed, "seed", 0, "Seed for RND, 0 seeds from the clock")

	if err := flags.Parse(args); err != nil {
		return opts, nil, err
	}

	return opts, flags.Args(), nil
}

// symbolFile is the debug symbol table written next to the program by
// gochip8-asm.
func symbolFile(program string) string {
	return filepath.Join(
		filepath.Dir(program),
		strings.TrimSuffix(filepath.Base(program), filepath.Ext(program))+".c8db",
	)
}

func loadSymbols(filename string) (*assembler.SymTable, error) {
	file, err := os.Open(filename)

	if err != nil {
		return nil, err
	}

	defer file.Close()

	var symtable assembler.SymTable

	if err := gob.NewDecoder(file).Decode(&symtable); err != nil {
		return nil, fmt.Errorf("decoding symbol table: %w", err)
	}

	return &symtable, nil
}

func newDebugger(s *session, program string) *debugger.Debugger {
	dbg := &debugger.Debugger{
		HandleBreak: s.handleBreak,
		HandleRead:  s.handleRead,
		HandleWrite: s.handleWrite,
	}

	symtable, err := loadSymbols(symbolFile(program))

	if err != nil {
		s.logger.Warn("Error loading symbol file", log.Err(err))
		return dbg
	}

	dbg.SymTable = symtable

	if symtable.Source != "" {
		if file, err := os.Open(symtable.Source); err == nil {
			dbg.Source = file
			s.closers = append(s.closers, file)
		} else {
			s.logger.Warn("Error loading source file", log.Err(err))
		}
	}

	return dbg
}

func gochip8() int {
	opts, args, err := readArguments(os.Args[1:])

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}

	logger := config.CreateLogger(os.Stderr, opts.verbose || opts.trace, opts.quiet)

	if err != nil {
		logger.Error(usage, nil)
		return 1
	}

	if opts.help {
		fmt.Println(usage)
		return 0
	}

	if opts.version {
		fmt.Printf("gochip8 %s\n", buildinfo.Version(version, commit, date))
		return 0
	}

	if len(args) != 1 {
		logger.Error(usage, nil)
		return 1
	}

	if err := opts.Validate(); err != nil {
		logger.Error("Invalid configuration", err)
		return 1
	}

	rom, err := os.ReadFile(args[0])

	if err != nil {
		logger.Error("Reading program failed", err)
		return 1
	}

	if opts.dump {
		if err := disasm.Listing(os.Stdout, rom, machine.MEMSPACE_PROGRAM); err != nil {
			logger.Error("Writing listing failed", err)
			return 1
		}
		return 0
	}

	mc := &machine.Machine{
		Quirks: opts.Quirks(),
		Random: opts.Random(),
	}

	if opts.trace {
		mc.Logger = logger
	}

	if err := mc.LoadBin(bytes.NewReader(rom)); err != nil {
		logger.Error("Loading program failed", err)
		return 1
	}

	logger.Debug(
		"Loaded program",
		log.String("file", args[0]),
		log.Int("bytes", len(rom)),
	)

	s := newSession(mc, opts.Emulator, logger, rom)
	defer s.close()

	if opts.debug {
		dbg := newDebugger(s, args[0])
		mc.Debugger = dbg
		s.dbg = dbg
	}

	if err := checkTerminal(); err != nil {
		logger.Error("Terminal unavailable", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if err := s.start(); err != nil {
		logger.Error("Entering raw terminal mode failed", err)
		return 1
	}

	err = s.run(ctx)

	if stopErr := s.stop(); stopErr != nil {
		logger.Error("Restoring terminal failed", stopErr)
	}

	if err != nil {
		logger.Error(
			"Machine stopped",
			err,
			log.String("pc", fmt.Sprintf("0x%03X", mc.State.Program)),
		)
		return 1
	}

	return 0
}

func main() {
	os.Exit(gochip8())
}
