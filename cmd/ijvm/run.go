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
	"context"
	"io"
	"os"

	"github.com/rjeczalik/notify"
	"gopkg.in/urfave/cli.v1"

	"github.com/probechain/ijvm/ijvm"
	"github.com/probechain/ijvm/internal/log"
)

var runCommand = cli.Command{
	Name:      "run",
	Usage:     "load a binary image and run it to completion",
	ArgsUsage: "<image.ijvm>",
	Flags:     []cli.Flag{inFlag, outFlag, watchFlag},
	Action:    runAction,
}

func runAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return cli.NewExitError("usage: ijvm run [flags] <image.ijvm>", 1)
	}
	path := ctx.Args().First()

	if ctx.Bool(watchFlag.Name) {
		return runWatch(ctx, path)
	}
	return runOnce(ctx, path)
}

func runOnce(ctx *cli.Context, path string) error {
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

	log.Info("loaded image", "path", path, "id", m.ID(), "checksum", m.ImageChecksum(), "text_size", m.GetTextSize())

	runCancelable(context.Background(), m)

	log.Info("run finished", "id", m.ID(), "halted", m.Halted(), "reason", m.HaltReason(), "tos", m.TOS())
	if m.HaltReason() == ijvm.HaltFault {
		return cli.NewExitError(m.FaultErr().Error(), 1)
	}
	return nil
}

// runCancelable drives m.Step in a loop instead of calling m.Run directly,
// so a caller-supplied context can interrupt between instructions (§5): the
// VM itself has no cancellation of its own.
func runCancelable(ctx context.Context, m *ijvm.VM) {
	for !m.Finished() {
		select {
		case <-ctx.Done():
			return
		default:
			m.Step()
		}
	}
}

// runWatch re-runs the image every time it changes on disk, per §10. It is a
// development convenience with no bearing on single-run determinism.
func runWatch(ctx *cli.Context, path string) error {
	events := make(chan notify.EventInfo, 1)
	if err := notify.Watch(path, events, notify.Write); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer notify.Stop(events)

	log.Info("watching for changes", "path", path)
	if err := runOnce(ctx, path); err != nil {
		log.Error("run failed", "err", err)
	}
	for range events {
		log.Info("image changed, re-running", "path", path)
		if err := runOnce(ctx, path); err != nil {
			log.Error("run failed", "err", err)
		}
	}
	return nil
}

func openStreams(ctx *cli.Context) (io.Reader, io.Writer, func(), error) {
	var (
		in  io.Reader = os.Stdin
		out io.Writer = os.Stdout
		toClose []io.Closer
	)

	if p := ctx.String(inFlag.Name); p != "" {
		f, err := os.Open(p)
		if err != nil {
			return nil, nil, nil, cli.NewExitError(err.Error(), 1)
		}
		in = f
		toClose = append(toClose, f)
	}
	if p := ctx.String(outFlag.Name); p != "" {
		f, err := os.Create(p)
		if err != nil {
			return nil, nil, nil, cli.NewExitError(err.Error(), 1)
		}
		out = f
		toClose = append(toClose, f)
	}

	return in, out, func() {
		for _, c := range toClose {
			c.Close()
		}
	}, nil
}
