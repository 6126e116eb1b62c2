package chant

import (
	_ "embed"
	"fmt"
	"os"
)

//go:embed USAGE.md
var README string

// Usage prints the command line help, followed by msg, and exits.
func Usage(msg ...any) {

	_, _ = os.Stderr.WriteString(README)
	fmt.Fprintln(os.Stderr)

	if len(msg) > 0 {
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, msg...)
		fmt.Fprintln(os.Stderr)
	}

	os.Exit(1)
}

func Exit(code int, err error) {
	_, _ = fmt.Fprintln(os.Stderr, err)
	os.Exit(code)
}
