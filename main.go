package main

import "github.com/halcyonlabs/personagate/cmd"

func main() {
	cmd.Execute()
}
