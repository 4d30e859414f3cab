// Copyright 2024 The ProbeChain Authors
// This file is part of the ijvm library.
//
// The ijvm library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ijvm library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ijvm library. If not, see <http://www.gnu.org/licenses/>.

// Command ijvm is a small front end over the ijvm package: it runs, steps,
// and disassembles IJVM binary images. It is an external collaborator over
// the library's tested contract, not part of it.
package main

import (
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"

	"github.com/probechain/ijvm/internal/ijvmconfig"
	"github.com/probechain/ijvm/internal/log"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to a TOML config file",
	}
	verboseFlag = cli.BoolFlag{
		Name:  "verbose",
		Usage: "enable debug-level logging",
	}
	inFlag = cli.StringFlag{
		Name:  "in",
		Usage: "file to use as the program's input stream (default: stdin)",
	}
	outFlag = cli.StringFlag{
		Name:  "out",
		Usage: "file to use as the program's output stream (default: stdout)",
	}
	watchFlag = cli.BoolFlag{
		Name:  "watch",
		Usage: "re-run whenever the binary changes on disk",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "ijvm"
	app.Usage = "load, run, step, and disassemble IJVM binary images"
	app.Flags = []cli.Flag{configFlag, verboseFlag}
	app.Commands = []cli.Command{
		runCommand,
		disasmCommand,
		stepCommand,
	}
	app.Before = func(ctx *cli.Context) error {
		level := log.LevelInfo
		if ctx.GlobalBool(verboseFlag.Name) {
			level = log.LevelDebug
		}
		log.Root = log.New(os.Stderr, level)

		cfg, err := ijvmconfig.Load(ctx.GlobalString(configFlag.Name))
		if err != nil {
			return err
		}
		if cfg.LogLevel != "" && !ctx.GlobalBool(verboseFlag.Name) {
			if lvl, ok := log.ParseLevel(cfg.LogLevel); ok {
				log.Root = log.New(os.Stderr, lvl)
			}
		}
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ijvm: %v\n", err)
		os.Exit(1)
	}
}
