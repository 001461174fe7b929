package main

import "github.com/spec-kit/staff-console/cmd/console/cmd"

func main() {
	cmd.Execute()
}
