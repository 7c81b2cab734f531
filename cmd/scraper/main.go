// Command scraper is the operator console: one subcommand per workflow,
// plus progress inspection, cancellation, and a cron daemon mode.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/encheres-immo/scraper/internal/cli"
	"github.com/encheres-immo/scraper/internal/scrapeerr"
)

func main() {
	err := cli.Execute()
	if err == nil || errors.Is(err, scrapeerr.ErrCancelled) {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
