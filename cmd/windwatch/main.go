package main

import "windwatch/internal/cli"

func main() {
	cli.Execute()
}
