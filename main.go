package main

import "github.com/example/vocabulario/cmd"

func main() {
	cmd.Execute()
}
