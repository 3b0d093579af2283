// Package main is the entry point for the sql-gateway server binary.
package main

import (
	"os"
)

func main() {
	os.Exit(execute(os.Args[1:]))
}
