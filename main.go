package main

import "github.com/zcached/zcached-go/cmd"

func main() {
	cmd.Execute()
}
