package main

import "github.com/notargets/srfsimple/cmd"

func main() {
	cmd.Execute()
}
