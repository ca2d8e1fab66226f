package main

import "glacier/cli"

func main() {
	cli.Execute()
}
