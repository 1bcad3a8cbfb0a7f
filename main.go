package main

import "github.com/samuelfneumann/godqn/cmd"

func main() {
	cmd.Execute()
}
