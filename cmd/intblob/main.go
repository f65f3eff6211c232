package main

import (
	"github.com/ssargent/intblob/cmd/intblob/cmd"
)

func main() {
	cmd.Execute()
}
