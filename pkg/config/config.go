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

// Package config holds the settings shared by the command line tools.
package config

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/retroenv/retrogolib/log"
)

const (
	TimersCoupled   = "coupled"
	TimersDecoupled = "60hz"
)

// TimerPeriod is the host tick period used with TimersDecoupled.
const TimerPeriod = time.Second / 60

var ErrInvalidOption = errors.New("invalid option")

// Emulator collects the settings of a terminal session.
type Emulator struct {
	// Delay between two steps
	Rate time.Duration

	ShiftUsesVY bool

	// TimersCoupled or TimersDecoupled
	Timers string

	// How long a key stays down after a terminal key event
	Hold time.Duration

	// Zero seeds from the clock
	Seed int64
}

func DefaultEmulator() Emulator {
	return Emulator{
		Rate:   time.Millisecond,
		Timers: TimersCoupled,
		Hold:   100 * time.Millisecond,
	}
}

func (cfg Emulator) Validate() error {
	if cfg.Rate <= 0 {
		return fmt.Errorf("%w: rate must be positive, have %s", ErrInvalidOption, cfg.Rate)
	}

	if cfg.Hold < 0 {
		return fmt.Errorf("%w: hold must not be negative, have %s", ErrInvalidOption, cfg.Hold)
	}

	switch cfg.Timers {
	case TimersCoupled, TimersDecoupled:
	default:
		return fmt.Errorf(
			"%w: timers must be %s or %s, have '%s'",
			ErrInvalidOption, TimersCoupled, TimersDecoupled, cfg.Timers,
		)
	}

	return nil
}

func (cfg Emulator) Quirks() machine.Quirks {
	return machine.Quirks{
		ShiftUsesVY:     cfg.ShiftUsesVY,
		DecoupledTimers: cfg.Timers == TimersDecoupled,
	}
}

// Random returns nil for a zero seed, leaving the machine to seed itself.
func (cfg Emulator) Random() machine.RandomSource {
	if cfg.Seed == 0 {
		return nil
	}
	return machine.NewRandom(cfg.Seed)
}

// CreateLogger creates a logger writing to output with the level selected by
// the debug and quiet flags.
func CreateLogger(output io.Writer, debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Output = output
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}
