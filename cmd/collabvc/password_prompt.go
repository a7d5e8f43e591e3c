package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	internalauth "collabvc/internal/auth"
)

// readPasswordInput reads the password from stdin when fromStdin is set,
// otherwise prompts on the controlling terminal without echo.
func readPasswordInput(cmd *cobra.Command, fromStdin bool) (string, error) {
	if fromStdin {
		return internalauth.ReadPassword(cmd.InOrStdin())
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal; pipe the password with --password-stdin")
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("password is required")
	}
	return string(raw), nil
}
