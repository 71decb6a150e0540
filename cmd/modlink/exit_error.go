// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/modlink/modlink/pkg/types"

	"github.com/spf13/cobra"
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE
// handlers. The command has already reported the problem when Err is nil.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitSilently stops cmd with code after the command printed its own report.
func exitSilently(cmd *cobra.Command, code types.ExitCode) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return &ExitError{Code: code}
}
