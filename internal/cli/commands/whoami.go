package commands

import (
	"context"
	"fmt"

	"KnowBase/internal/config"
)

type whoamiCmd struct{}

func (whoamiCmd) Name() string        { return "whoami" }
func (whoamiCmd) Description() string { return "Показать текущего пользователя и роль" }
func (whoamiCmd) Usage() string       { return "whoami" }

func (whoamiCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	if err := requireLogin(); err != nil {
		return err
	}
	p, err := newClient(cfg).Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "id:      %d\n", p.ID)
	fmt.Fprintf(Out, "login:   %s\n", p.Login)
	fmt.Fprintf(Out, "name:    %s\n", p.DisplayName)
	fmt.Fprintf(Out, "role:    %s\n", p.Role)
	return nil
}

func init() { RegisterCmd(whoamiCmd{}) }
