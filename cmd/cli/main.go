package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/evidencevault/internal/client/cli"
	"github.com/dmitrijs2005/evidencevault/internal/client/config"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cfg := config.LoadConfig()

	code := cli.NewApp(cfg).Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)

}
