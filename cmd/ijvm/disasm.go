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
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/probechain/ijvm/ijvm"
)

var disasmCommand = cli.Command{
	Name:      "disasm",
	Usage:     "print a columnar disassembly of an image's text section",
	ArgsUsage: "<image.ijvm>",
	Action:    disasmAction,
}

func disasmAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return cli.NewExitError("usage: ijvm disasm <image.ijvm>", 1)
	}
	path := ctx.Args().First()

	m, err := ijvm.Init(path, strings.NewReader(""), &strings.Builder{})
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer m.Destroy()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"offset", "mnemonic", "operands"})
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)

	text := m.GetText()
	for pc := 0; pc < len(text); {
		op := ijvm.Opcode(text[pc])
		n := op.Operands()
		start := pc + 1
		end := start + n
		if end > len(text) {
			end = len(text)
		}
		table.Append([]string{
			fmt.Sprintf("0x%04X", pc),
			op.String(),
			formatOperands(text[start:end]),
		})
		pc = end
	}
	table.Render()
	return nil
}

func formatOperands(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	var parts []string
	for _, v := range b {
		parts = append(parts, fmt.Sprintf("%02X", v))
	}
	return strings.Join(parts, " ")
}
