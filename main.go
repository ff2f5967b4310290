package main

import "nymctl/cmd"

func main() {
	cmd.Execute()
}
