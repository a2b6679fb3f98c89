package main

import "github.com/paras-verma7454/DriveDeck/cmd"

func main() {
	cmd.Execute()
}
