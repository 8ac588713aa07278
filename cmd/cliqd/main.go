// Command cliqd is the command-line front end of the cliqd feed.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"cliqd/internal/bootstrap"
	"cliqd/internal/config"
	"cliqd/internal/models"
	"cliqd/internal/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}

	ctx := observability.WithCorrelationID(context.Background(), observability.GenerateCorrelationID())
	app, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Printf("Failed to initialize runtime: %v", err)
		return 1
	}
	defer func() {
		if err := app.Close(ctx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	c := &cli{app: app, out: os.Stdout, now: time.Now}
	if err := c.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		return 1
	}
	return 0
}

// describe prefers the user-facing message of application errors.
func describe(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code != models.CodeInternal {
		return appErr.Message
	}
	return err.Error()
}
