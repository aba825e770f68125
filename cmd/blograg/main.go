package main

import "blograg/internal/cli"

func main() {
	cli.Execute()
}
