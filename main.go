package main

import "github.com/chrisdamba/foodatrack/cmd"

func main() {
	cmd.Execute()
}
