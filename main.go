package main

import "github.com/theirongolddev/goalcast/cmd"

func main() {
	cmd.Execute()
}
