package main

import (
	"os"

	"github.com/xiaot623/gogo/agentcore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
