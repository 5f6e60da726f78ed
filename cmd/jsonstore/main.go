package main

import (
	"fmt"
	"os"

	"github.com/kjk/storage/log"
)

func main() {
	cmd := newRootCmd()
	err := cmd.Execute()
	log.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
