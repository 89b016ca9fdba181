package commands

import (
	"context"
	"fmt"

	"KnowBase/internal/config"
)

type cardDeleteCmd struct{}

func (cardDeleteCmd) Name() string        { return "card-delete" }
func (cardDeleteCmd) Description() string { return "Удалить карточку" }
func (cardDeleteCmd) Usage() string       { return "card-delete <id>" }

func (cardDeleteCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	if err := requireLogin(); err != nil {
		return err
	}
	if err := newClient(cfg).DeleteCard(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(Out, "Deleted %s\n", args[0])
	return nil
}

func init() { RegisterCmd(cardDeleteCmd{}) }
