package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"teater-impact-report/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if err := cli.Execute(ctx, args, stdout, stderr); err != nil {
		exitWithError(stderr, err)
		return 1
	}
	return 0
}

func exitWithError(w io.Writer, err error) {
	fmt.Fprintln(w, "Error:", err)
}
