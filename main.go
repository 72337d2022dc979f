package main

import "lufs-timeline/cmd"

func main() {
	cmd.Execute()
}
