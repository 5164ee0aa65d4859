package main

import "archie-core-commerce-sync/internal/cli"

func main() {
	cli.Execute()
}
