package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/user/festmap/cmd/festmap/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.ExecuteContext(ctx)
}
