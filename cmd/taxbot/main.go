package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/recibos/taxbot/internal/interfaces/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.DefaultEnvironment(), os.Args[1:])
	stop()
	os.Exit(code)
}
