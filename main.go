package main

import (
	"github.com/wfunc/trexbooth/cli"
)

func main() {
	cli.Execute()
}
