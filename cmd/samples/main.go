package main

import "github.com/makeasinger/samples/internal/cli"

func main() {
	cli.Execute()
}
