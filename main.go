// The main package for the datescout executable.
package main

import "github.com/seekerlab/datescout/cmd"

func main() {
	cmd.Execute()
}
