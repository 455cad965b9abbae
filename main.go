package main

import "reframe/cmd"

func main() {
	cmd.Execute()
}
