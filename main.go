package main

import "gymgate/cmd"

func main() {
	cmd.Execute()
}
