package main

import "github.com/Togather-Foundation/nko-directory/cmd/server/cmd"

func main() {
	cmd.Execute()
}
