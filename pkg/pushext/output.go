package pushext

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	warnColor    = color.New(color.FgYellow)
	successColor = color.New(color.FgGreen)
)

// warnf writes a non-fatal warning line. Warnings never stop the injection
// sequence; they flag best-effort steps that failed.
func warnf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", warnColor.Sprint("warning:"), fmt.Sprintf(format, args...))
}

// successf writes a completion line for a finished step.
func successf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", successColor.Sprint("done:"), fmt.Sprintf(format, args...))
}
