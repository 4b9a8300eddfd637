// Package main provides a banner entry point for dctranslate.
//
// For the real CLI, use: go run ./cmd/dctranslate
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("dctranslate - static AArch64-to-LLVM-IR binary translator")
	fmt.Println("")
	fmt.Println("Usage: dctranslate [options] <program.elf>")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/dctranslate' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: you provided arguments. Use 'go run ./cmd/dctranslate' instead.")
	}
}
