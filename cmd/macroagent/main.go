package main

import (
	"github.com/dyike/MacroAgent/internal/cli"
)

func main() {
	cli.Run()
}
