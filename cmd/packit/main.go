// Command packit maintains a plugin catalog: it reconciles a working
// directory of plugin files into plugins.json and manages client repositories.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, styleError.Render("[error]"), err)
		stop()
		os.Exit(1)
	}
}
