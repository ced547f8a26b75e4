package main

import "github.com/pullchain/pullchain/app/wallet/cmd"

func main() {
	cmd.Execute()
}
