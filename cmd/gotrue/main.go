package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ErlanBelekov/gotrue-go/internal/cli"
)

// version is set at build time via ldflags
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := cli.NewRootCommand(version).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Stderr.WriteString("Error: " + cli.DescribeError(err) + "\n")
		os.Exit(1)
	}
}
