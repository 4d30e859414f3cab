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

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"gopkg.in/urfave/cli.v1"

	"github.com/probechain/ijvm/ijvm"
)

var stepCommand = cli.Command{
	Name:      "step",
	Usage:     "interactively single-step a loaded image",
	ArgsUsage: "<image.ijvm>",
	Flags:     []cli.Flag{inFlag, outFlag},
	Action:    stepAction,
}

// stepAction is a thin REPL over Step/Finished/TOS/GetInstruction: it adds
// no VM semantics of its own and persists nothing across invocations (§10).
func stepAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return cli.NewExitError("usage: ijvm step [flags] <image.ijvm>", 1)
	}
	path := ctx.Args().First()

	in, out, closeStreams, err := openStreams(ctx)
	if err != nil {
		return err
	}
	defer closeStreams()

	m, err := ijvm.Init(path, in, out)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer m.Destroy()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Fprintln(os.Stdout, "ijvm step: enter to single-step, 'r' to run to completion, 'q' to quit")
	printStepState(m)

	for !m.Finished() {
		input, err := line.Prompt("ijvm> ")
		if err != nil {
			if err == io.EOF || err == liner.ErrPromptAborted {
				return nil
			}
			return cli.NewExitError(err.Error(), 1)
		}
		line.AppendHistory(input)

		switch strings.TrimSpace(input) {
		case "q", "quit":
			return nil
		case "r", "run":
			m.Run()
		default:
			m.Step()
		}
		printStepState(m)
	}
	return nil
}

func printStepState(m *ijvm.VM) {
	op, ok := m.GetInstruction()
	instr := "<end of text>"
	if ok {
		instr = op.String()
	}
	fmt.Printf("pc=%d tos=%d next=%s halted=%v\n",
		m.GetProgramCounter(), m.TOS(), instr, m.Halted())
}
