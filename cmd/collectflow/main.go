// Package main is the entrypoint for the CollectFlow API gateway.
package main

import "github.com/joao-brasil/collectflow/cmd/collectflow/command"

func main() {
	command.Execute()
}
