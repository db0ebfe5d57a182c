package errs

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

type Category int

const (
	Argument Category = iota
	Configuration
	Runtime
)

func (c Category) String() string {
	switch c {
	case Argument:
		return "Argument Error"
	case Configuration:
		return "Configuration Error"
	case Runtime:
		return "Runtime Error"
	default:
		return "Error"
	}
}

// CLIError is an error with remediation steps for the terminal.
type CLIError struct {
	Category    Category
	Message     string
	Remediation []string
	Err         error
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

func NewArgumentError(message string, remediation ...string) *CLIError {
	return &CLIError{Category: Argument, Message: message, Remediation: remediation}
}

func NewConfigError(message string, remediation ...string) *CLIError {
	return &CLIError{Category: Configuration, Message: message, Remediation: remediation}
}

func NewRuntimeError(message string, err error, remediation ...string) *CLIError {
	return &CLIError{Category: Runtime, Message: message, Err: err, Remediation: remediation}
}

var (
	errorLabel  = color.New(color.FgRed, color.Bold).SprintFunc()
	errorMsg    = color.New(color.FgRed).SprintFunc()
	fixLabel    = color.New(color.FgGreen, color.Bold).SprintFunc()
	bullet      = color.New(color.FgGreen).SprintFunc()
	categoryFmt = color.New(color.FgYellow).SprintFunc()
)

// Format renders the error for a terminal. Colors follow color.NoColor.
func Format(err *CLIError) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s]: %s\n", errorLabel("Error"), categoryFmt(err.Category.String()), errorMsg(err.Error()))

	if len(err.Remediation) > 0 {
		sb.WriteString("\n")
		sb.WriteString(fixLabel("To fix this:"))
		sb.WriteString("\n")
		for _, step := range err.Remediation {
			fmt.Fprintf(&sb, "  %s %s\n", bullet("•"), step)
		}
	}

	return sb.String()
}
