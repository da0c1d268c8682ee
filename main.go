// The main package for the shutdowncrawler executable.
package main

import (
	"github.com/gridwatch/shutdown-crawler/cmd"
)

func main() {
	cmd.Execute()
}
