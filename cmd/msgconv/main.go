package main

import "msgconv/internal/cli"

func main() {
	cli.Execute()
}
