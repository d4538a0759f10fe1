package main

import "github.com/iksnae/medisnap/cmd"

func main() {
	cmd.Execute()
}
