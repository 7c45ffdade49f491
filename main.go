package main

import "github.com/haxorport/tunnel-bridge/cmd"

func main() {
	cmd.Execute()
}
