package main

import (
	"fmt"
	"os"

	"github.com/m3rciful/facilitybot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "facilitybot:", err)
		os.Exit(1)
	}
}
