/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"

	"nymctl/internal/core"
)

// exitCode maps what a command returned to the process exit status.
// The operator saying no is a clean exit, everything else is a failure
func exitCode(err error) int {
	if err == nil || errors.Is(err, core.ErrOperatorCancelled) {
		return 0
	}
	return 1
}
