package main

import "github.com/satriajat/helpdesk-management/cmd"

func main() {
	cmd.Execute()
}
