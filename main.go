package main

import (
	"os"

	"github.com/kondukto-io/portguard/cmd/cli"
)

func main() {
	cli.Execute(os.Args[1:])
}
