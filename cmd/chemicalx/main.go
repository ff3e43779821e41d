package main

import "github.com/dualword/chemicalx/cmd/chemicalx/commands"

func main() {
	commands.Execute()
}
