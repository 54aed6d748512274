// Package main is the entry point for the shapecheck CLI.
package main

func main() {
	Execute()
}
