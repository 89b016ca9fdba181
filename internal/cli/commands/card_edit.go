package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"KnowBase/internal/cli/model"
	"KnowBase/internal/config"
)

type cardEditCmd struct{}

func (cardEditCmd) Name() string { return "card-edit" }
func (cardEditCmd) Description() string {
	return "Изменить поля карточки; не указанные поля не меняются"
}
func (cardEditCmd) Usage() string {
	return "card-edit [--title ..] [--description ..] [--category ..] [--author ..] <id>"
}

func (cardEditCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	// Парсим флагами: разрешаем только префиксные флаги перед позиционными аргументами
	fs := flag.NewFlagSet("card-edit", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	title := fs.String("title", "", "заголовок")
	description := fs.String("description", "", "описание")
	category := fs.String("category", "", "категория")
	author := fs.String("author", "", "имя автора; пустое значение сбрасывает")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if fs.NArg() != 1 {
		return ErrUsage
	}

	// в патч попадают только явно переданные флаги
	var in model.CardInput
	set := 0
	fs.Visit(func(f *flag.Flag) {
		set++
		switch f.Name {
		case "title":
			in.Title = title
		case "description":
			in.Description = description
		case "category":
			in.Category = category
		case "author":
			in.AuthorName = author
		}
	})
	if set == 0 {
		return ErrUsage
	}
	if err := requireLogin(); err != nil {
		return err
	}

	c, err := newClient(cfg).UpdateCard(ctx, fs.Arg(0), in)
	if err != nil {
		return err
	}
	fmt.Fprintln(Out, "Updated:")
	fmt.Fprintf(Out, "  id:      %s\n", c.ID)
	fmt.Fprintf(Out, "  updated: %s\n", c.UpdatedAt.Format("2006-01-02 15:04:05.000000"))
	return nil
}

func init() { RegisterCmd(cardEditCmd{}) }
