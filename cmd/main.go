package main

import (
	"adb-host-go/pkg/cli"
)

func main() {
	cli.Execute()
}
