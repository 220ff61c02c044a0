package main

import (
	"os"

	"github.com/YangchenYe323/hapi/internal/command"
)

func main() {
	if err := command.HapiCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
