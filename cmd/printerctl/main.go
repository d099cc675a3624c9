// Package main запускает консоль оператора печати этикеток.
package main

import (
	"os"

	"github.com/mmeshcher/labelprint/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
