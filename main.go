package main

import (
	"os"

	"dfxvm/cmd"
)

// main hands the whole argument vector to the dispatcher: the executable
// name decides whether this process is dfxvm, dfxvm-init or the dfx proxy.
func main() {
	os.Exit(cmd.Dispatch(os.Args))
}
