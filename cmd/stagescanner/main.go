package main

import "stage-scanner/internal/cli"

func main() {
	cli.Execute()
}
