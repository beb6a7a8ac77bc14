package main

import "github.com/workclock/alarmsched/cmd/alarmsched/cmd"

func main() {
	cmd.Execute()
}
