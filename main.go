package main

import "goodhabits/cli"

func main() {
	cli.Execute()
}
