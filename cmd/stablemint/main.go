package main

import (
	"github.com/stablemint/stablemint/cmd/stablemint/commands"
)

func main() {
	commands.Execute()
}
