package main

import "github.com/AzielCF/az-shield/cmd"

func main() {
	cmd.Execute()
}
