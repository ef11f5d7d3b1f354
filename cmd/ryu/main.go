package main

import (
	"fmt"
	"os"

	"github.com/jj-ryu/ryu/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
