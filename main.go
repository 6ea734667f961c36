/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "weatherbot/cmd"

func main() {
	cmd.Execute()
}
