package commands

import (
	"KnowBase/internal/cli/api"
	"KnowBase/internal/config"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Коды завершения CLI.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitInterrupted = 130
)

// Dispatch is the single entry point to execute CLI commands.
// It prints help and usage messages and returns a process exit code.
func Dispatch(ctx context.Context, cfg *config.Config, args []string) int {
	for _, a := range os.Args[1:] {
		if a == "--help" || a == "-h" {
			fmt.Fprint(Out, FormatGlobalUsage())
			return ExitOK
		}
	}
	if !flag.Parsed() {
		flag.Parse()
	}

	if len(args) == 0 {
		fmt.Fprint(Out, FormatGlobalUsage())
		return ExitUsage
	}

	name := strings.ToLower(args[0])
	if name == "help" {
		return help(args[1:])
	}

	c, ok := Get(name)
	if !ok {
		fmt.Fprintf(Out, "Unknown command: %s\n\n", name)
		fmt.Fprint(Out, FormatGlobalUsage())
		return ExitUsage
	}

	err := c.Run(ctx, cfg, args[1:])
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage):
		fmt.Fprintf(Out, "Usage: %s\n", c.Usage())
		return ExitUsage
	case ctx.Err() != nil:
		fmt.Fprintln(Out, "Interrupted")
		return ExitInterrupted
	default:
		fmt.Fprintf(Out, "%s error: %s\n", name, describe(err))
		return ExitFailure
	}
}

// help печатает общую справку или справку по одной команде.
func help(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(Out, FormatGlobalUsage())
		return ExitOK
	}
	c, ok := Get(strings.ToLower(args[0]))
	if !ok {
		fmt.Fprintf(Out, "Unknown command: %s\n\n", args[0])
		fmt.Fprint(Out, FormatGlobalUsage())
		return ExitUsage
	}
	fmt.Fprintf(Out, "Usage: %s\n  %s\n", c.Usage(), c.Description())
	return ExitOK
}

// describe подсказывает, что делать при типичных отказах сервера.
func describe(err error) string {
	if errors.Is(err, api.ErrNotLoggedIn) {
		return "not logged in, run: login <login> <password>"
	}
	switch api.StatusOf(err) {
	case http.StatusUnauthorized:
		return err.Error() + " (session expired? log in again)"
	case http.StatusForbidden:
		return err.Error() + " (your role does not allow this)"
	}
	return err.Error()
}
