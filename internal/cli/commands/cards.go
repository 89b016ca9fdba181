package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"KnowBase/internal/config"
)

type cardsCmd struct{}

func (cardsCmd) Name() string { return "cards" }
func (cardsCmd) Description() string {
	return "Список карточек (фильтр по категории и поиск по тексту)"
}
func (cardsCmd) Usage() string { return "cards [--category <name>] [<query>]" }

func (cardsCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("cards", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	category := fs.String("category", "", "категория")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	query := strings.Join(fs.Args(), " ")

	list, err := newClient(cfg).ListCards(ctx, *category, query)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(Out, "Нет карточек")
		return nil
	}
	for _, c := range list {
		fmt.Fprintf(Out, "- %s  [%s] %s  (%s)\n", c.ID, c.Category, c.Title, c.Author)
	}
	fmt.Fprintf(Out, "Всего: %d\n", len(list))
	return nil
}

func init() { RegisterCmd(cardsCmd{}) }
