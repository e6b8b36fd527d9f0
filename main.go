package main

import "github.com/kamusis/flowdex/cmd"

func main() {
	cmd.Execute()
}
