package logger

import (
	"io"
	"strings"

	"github.com/fatih/color" // Import the fatih/color package for colored console output
)

// Output is where every log line is written.
// It defaults to color.Error (stderr) so that the dfx proxy never mixes
// manager diagnostics into the stdout of the tool it executes.
var Output io.Writer = color.Error

// Define colorized printing functions for different log levels using fatih/color.
// These are package-level variables holding functions that behave like fmt.Printf,
// but with text colored appropriately for the log level.

// Info logs informational messages in green color.
var Info = printfTo(color.FgGreen)

// Warn logs warning messages in bright magenta color.
// Retry notices from the downloader use this level.
var Warn = printfTo(color.FgHiMagenta)

// Error logs error messages in red color.
var Error = printfTo(color.FgRed)

// Debug logs debug messages in cyan color if enabled, otherwise is a no-op.
// It starts out disabled; Init swaps it depending on the --debug flag.
var Debug = func(format string, a ...any) {}

// Init initializes the logger package, specifically enabling or disabling debug logging.
// Parameters:
// - enableDebug: boolean flag to turn debug messages on or off.
func Init(enableDebug bool) {
	if enableDebug {
		Debug = printfTo(color.FgCyan)
	} else {
		Debug = func(format string, a ...any) {}
	}
}

// Cause reports err on an [ERROR] line. A cause is listed on its own
// "caused by" line only when its text is not already part of the message
// above it. Each error joined with errors.Join is reported separately.
// Only the top-level dispatcher calls this; everything below it returns errors.
func Cause(err error) {
	if err == nil {
		return
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			Cause(e)
		}
		return
	}
	Error("[ERROR] %v\n", err)
	reportCauses(err, err.Error())
}

func reportCauses(err error, shown string) {
	switch e := err.(type) {
	case interface{ Unwrap() []error }:
		for _, cause := range e.Unwrap() {
			reportCause(cause, shown)
		}
	case interface{ Unwrap() error }:
		reportCause(e.Unwrap(), shown)
	}
}

func reportCause(cause error, shown string) {
	if cause == nil {
		return
	}
	if msg := cause.Error(); !strings.Contains(shown, msg) {
		Error("    caused by: %v\n", msg)
		shown = msg
	}
	reportCauses(cause, shown)
}

// printfTo builds a printf-style function that writes to the current Output
// in the given color.
func printfTo(attr color.Attribute) func(format string, a ...any) {
	c := color.New(attr)
	return func(format string, a ...any) {
		_, _ = c.Fprintf(Output, format, a...)
	}
}
