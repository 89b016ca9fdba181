package commands

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"KnowBase/internal/cli/api"
	"KnowBase/internal/config"
)

type askCmd struct{}

func (askCmd) Name() string        { return "ask" }
func (askCmd) Description() string { return "Спросить ассистента по базе знаний" }
func (askCmd) Usage() string       { return "ask <question...>" }

func (askCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return ErrUsage
	}
	answer, err := newClient(cfg).Ask(ctx, question)
	if err != nil {
		if api.StatusOf(err) == http.StatusServiceUnavailable {
			return fmt.Errorf("assistant is not configured on the server: %w", err)
		}
		return err
	}
	fmt.Fprintln(Out, answer)
	return nil
}

func init() { RegisterCmd(askCmd{}) }
