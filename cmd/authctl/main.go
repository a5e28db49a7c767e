package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/authctl"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

func main() {
	logger := logging.New(os.Stderr, "warn")
	app := authctl.NewApp(os.Stdin, os.Stdout, logger)

	if err := app.Run(context.Background(), os.Args[1:]); err != nil {
		if !errors.Is(err, authctl.ErrUsage) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
