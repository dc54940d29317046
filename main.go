package main

import "github.com/samsaffron/tuibridge/cmd"

func main() {
	cmd.Execute()
}
