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
	"encoding/gob"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lassandro/gochip8/pkg/assembler"
	"github.com/lassandro/gochip8/pkg/config"
	"github.com/lassandro/gochip8/pkg/disasm"
	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

var helpvar bool
var debugvar bool
var listvar bool
var quietvar bool
var versionvar bool
var outvar string

const usage = "gochip8-asm [-debug] [-list] [-out outfile] filename"

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(
		&debugvar, "debug", false,
		"Specifies whether to generate debugging information as a symbol "+
			"table. The table will use the output filename with extension "+
			"'.c8db'",
	)
	flag.BoolVar(
		&listvar, "list", false,
		"Prints a disassembly listing of the assembled program",
	)
	flag.BoolVar(&quietvar, "quiet", false, "Only reports errors")
	flag.BoolVar(&versionvar, "version", false, "Prints the version and exits")
	flag.StringVar(
		&outvar, "out", "",
		"Specifies a precise name for the output file, "+
			"overriding the default means of determining it",
	)
	flag.Parse()
}

// symbolFile replaces the extension of the output file with .c8db
func symbolFile(outfile string) string {
	return filepath.Join(
		filepath.Dir(outfile),
		strings.TrimSuffix(filepath.Base(outfile), filepath.Ext(outfile))+".c8db",
	)
}

// printTokenError prints the source line of a positioned error with the
// offending token underlined.
func printTokenError(w io.Writer, input io.ReadSeeker, filename string, err error) {
	tokenErr, ok := err.(assembler.TokenError)

	if !ok || input == nil {
		fmt.Fprintf(w, "\033[1m%s:\033[0m%s\n", filename, err)
		return
	}

	cursor := tokenErr.GetPosition()

	if _, seekErr := input.Seek(cursor.LineByte, io.SeekStart); seekErr != nil {
		fmt.Fprintf(w, "\033[1m%s:\033[0m%s\n", filename, err)
		return
	}

	line, _ := bufio.NewReader(input).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")

	size := int(cursor.Size)
	if size < 1 {
		size = 1
	}

	underline := strings.Repeat(" ", int(cursor.Byte-cursor.LineByte)) +
		"^" + strings.Repeat("~", size-1)

	fmt.Fprintf(
		w,
		"\033[1m%s:\033[0m%s\n%s\n\033[31m%s\033[0m\n",
		filename,
		err,
		line,
		underline,
	)
}

func writeSymbols(filename string, symtable *assembler.SymTable) error {
	file, err := os.Create(filename)

	if err != nil {
		return fmt.Errorf("creating symbol table: %w", err)
	}

	if err := gob.NewEncoder(file).Encode(symtable); err != nil {
		file.Close()
		return fmt.Errorf("writing symbol table: %w", err)
	}

	return file.Close()
}

func gochip8_asm() int {
	logger := config.CreateLogger(os.Stderr, false, quietvar)

	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	if versionvar {
		fmt.Printf("gochip8-asm %s\n", buildinfo.Version(version, commit, date))
		return 0
	}

	args := flag.Args()

	var infile string
	var filename = "<stdin>"
	var input io.Reader
	var seeker io.ReadSeeker

	if stat, _ := os.Stdin.Stat(); len(args) == 0 && stat.Mode()&os.ModeCharDevice == 0 {
		input = os.Stdin

		if outvar == "" {
			outvar = "out.ch8"
		}
	} else {
		if len(args) != 1 {
			logger.Error(usage, nil)
			return 1
		}

		file, err := os.Open(args[0])

		if err != nil {
			logger.Error("Opening source failed", err)
			return 1
		}

		defer file.Close()

		filename = filepath.Base(file.Name())

		if stat, err := file.Stat(); err != nil {
			logger.Error("Opening source failed", err)
			return 1
		} else if stat.IsDir() {
			logger.Error(
				"Not a valid CHIP-8 assembly file",
				nil,
				log.String("file", filename),
			)
			return 1
		}

		input = file
		seeker = file
		infile = file.Name()

		if outvar == "" {
			outvar = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".ch8"
		}
	}

	var symtable *assembler.SymTable

	if debugvar {
		symtable = assembler.NewSymTable("")

		if infile != "" {
			if source, err := filepath.Abs(infile); err == nil {
				symtable.Source = source
			} else {
				logger.Warn("Resolving source path failed", log.Err(err))
			}
		}
	}

	result, errs := assembler.AssembleSource(input, symtable)

	if len(errs) > 0 {
		for _, err := range errs {
			printTokenError(os.Stderr, seeker, filename, err)
		}

		logger.Error(
			"Assembling failed",
			nil,
			log.String("file", filename),
			log.Int("errors", len(errs)),
		)
		return 1
	}

	if err := os.WriteFile(outvar, result, 0666); err != nil {
		logger.Error("Writing output file failed", err)
		return 1
	}

	logger.Info(
		"Assembled program",
		log.String("file", outvar),
		log.Int("bytes", len(result)),
	)

	if debugvar {
		if err := writeSymbols(symbolFile(outvar), symtable); err != nil {
			logger.Error("Writing symbol table failed", err)
			return 1
		}
	}

	if listvar {
		if err := disasm.Listing(os.Stdout, result, assembler.PROGRAM_START); err != nil {
			logger.Error("Writing listing failed", err)
			return 1
		}
	}

	return 0
}

func main() {
	os.Exit(gochip8_asm())
}
