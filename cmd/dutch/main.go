package main

import "github.com/mcoot/dutchscore/internal/cli"

func main() {
	cli.Execute()
}
