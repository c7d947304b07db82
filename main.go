package main

import "github.com/jmehdipour/order-alert/cmd"

func main() {
	cmd.Execute()
}
