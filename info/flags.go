package info

import (
	"flag"
	"fmt"
	"io"
)

var showVersion bool

func init() {
	flag.BoolVar(&showVersion, "version", false, "show version and exit")
}

// PrintVersionIfRequested writes the full version to w if the version flag
// was given. It reports whether the program should exit.
func PrintVersionIfRequested(w io.Writer) bool {
	if !showVersion {
		return false
	}
	fmt.Fprintln(w, FullVersion())
	return true
}
