package main

import "github.com/minvws/greenpass-hcert/cmd"

func main() {
	cmd.Execute()
}
