package main

import "github.com/nextlevelbuilder/gatehook/cmd"

func main() {
	cmd.Execute()
}
