package main

import (
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

func main() {
	Execute()
}

func fatal(msg string, err error) {
	if sentryEnabled {
		sentry.CaptureException(fmt.Errorf("%s: %w", msg, err))
		sentry.Flush(2 * time.Second)
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
