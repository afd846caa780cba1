package main

import "sdbridge/internal/cli"

func main() {
	cli.Execute()
}
