// Command voce is the dictation daemon and its control client.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rbright/voce/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	exitCode := app.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(exitCode)
}
