package main

import "github.com/agentpkg/depresolver/pkg/cmd"

func main() {
	cmd.Execute()
}
