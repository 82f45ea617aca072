// ltmsg - a two-party terminal chat over TCP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ltmsg/cmd"
	ncerr "ltmsg/internal/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		// A bare ErrUsage has already printed the usage text.
		if err != ncerr.ErrUsage { //nolint:errorlint
			fmt.Fprintf(os.Stderr, "ltmsg: %v\n", err)
		}
		cancel()
		os.Exit(1)
	}
}
