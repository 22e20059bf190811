package main

import "github.com/paragondesignz/spachat/cmd/spachat/cmd"

func main() {
	cmd.Execute()
}
