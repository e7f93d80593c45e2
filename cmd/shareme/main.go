package main

import (
	"os"

	"github.com/Raj5489/Share-Me/cmd/shareme/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
