// Command strmap runs the strmap sample scenario from the command line.
package main

import (
	"context"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/theflywheel/strmap/internal/cmd"
)

func main() {
	root := cmd.NewRootCmd()
	if err := fang.Execute(context.Background(), root,
		fang.WithVersion(cmd.Version()),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}
