package main

import "pulsegin/trends/cmd"

func main() {
	cmd.Execute()
}
