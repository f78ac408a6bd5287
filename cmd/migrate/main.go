package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"donation-api/internal/infra"
)

func main() {
	var (
		downFlag    int
		timeoutFlag time.Duration
	)
	flag.IntVar(&downFlag, "down", 0, "roll back this many migrations instead of applying pending ones")
	flag.DurationVar(&timeoutFlag, "timeout", time.Minute, "overall timeout")
	flag.Parse()

	_ = godotenv.Load()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}
	if downFlag < 0 {
		exitWithError(fmt.Errorf("-down must be positive, got %d", downFlag))
	}

	logger := infra.NewLoggerWithLevel(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))

	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()

	var err error
	if downFlag > 0 {
		err = infra.MigrateDown(ctx, dbURL, downFlag, logger)
	} else {
		err = infra.Migrate(ctx, dbURL, logger)
	}
	if err != nil {
		exitWithError(err)
	}
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
	os.Exit(1)
}
