package main

import "kindergarten/cmd/sessionctl/commands"

func main() {
	commands.Execute()
}
