// Package main runs the authentication service.
//
// Usage:
//
//	authserver [serve]   start the HTTP server and the cleanup scheduler
//	authserver cleanup   delete expired verification codes once and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/WaqasAhmad313/next-auth-app/app"
)

func main() {
	timeout := flag.Duration("timeout", time.Minute, "time limit for the cleanup command")
	flag.Parse()

	command := "serve"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	var err error
	switch command {
	case "serve":
		err = serve()
	case "cleanup":
		err = cleanup(*timeout)
	default:
		err = fmt.Errorf("unknown command %q (expected serve or cleanup)", command)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serve() error {
	application, err := app.NewApp().WithAutoConfig().Build()
	if err != nil {
		return err
	}
	return application.Run()
}

func cleanup(timeout time.Duration) error {
	application, err := app.NewApp().WithAutoConfig().WithoutHTTP().WithoutScheduler().Build()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := application.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = application.Stop(context.Background()) }()

	removed, err := application.CleanupExpiredOTPs(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d expired verification codes\n", removed)
	return nil
}
