package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"KnowBase/internal/cli/model"
	"KnowBase/internal/config"
)

type cardAddCmd struct{}

func (cardAddCmd) Name() string        { return "card-add" }
func (cardAddCmd) Description() string { return "Создать карточку" }
func (cardAddCmd) Usage() string {
	return "card-add [--author <name>] <category> <title> <description...>"
}

func (cardAddCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("card-add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	author := fs.String("author", "", "отображаемое имя автора")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	rest := fs.Args()
	if len(rest) < 3 {
		return ErrUsage
	}
	if err := requireLogin(); err != nil {
		return err
	}
	category, title := rest[0], rest[1]
	description := strings.Join(rest[2:], " ")
	in := model.CardInput{Title: &title, Description: &description, Category: &category}
	if *author != "" {
		in.AuthorName = author
	}
	c, err := newClient(cfg).CreateCard(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintln(Out, "Created:")
	fmt.Fprintf(Out, "  id:    %s\n", c.ID)
	fmt.Fprintf(Out, "  title: %s\n", c.Title)
	return nil
}

func init() { RegisterCmd(cardAddCmd{}) }
