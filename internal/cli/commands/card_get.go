package commands

import (
	"context"
	"fmt"

	"KnowBase/internal/cli/model"
	"KnowBase/internal/config"
)

type cardGetCmd struct{}

func (cardGetCmd) Name() string        { return "card" }
func (cardGetCmd) Description() string { return "Показать карточку по id" }
func (cardGetCmd) Usage() string       { return "card <id>" }

func (cardGetCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	c, err := newClient(cfg).GetCard(ctx, args[0])
	if err != nil {
		return err
	}
	printCard(c)
	return nil
}

func printCard(c model.Card) {
	fmt.Fprintf(Out, "id:          %s\n", c.ID)
	fmt.Fprintf(Out, "title:       %s\n", c.Title)
	fmt.Fprintf(Out, "category:    %s\n", c.Category)
	fmt.Fprintf(Out, "author:      %s\n", c.Author)
	fmt.Fprintf(Out, "created:     %s\n", c.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(Out, "updated:     %s\n", c.UpdatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(Out, "description: %s\n", c.Description)
	for _, f := range c.Files {
		fmt.Fprintf(Out, "file:        %s  %s\n", f.Name, f.URL)
	}
	for _, v := range c.Videos {
		u := v.URL
		if v.EmbedURL != "" {
			u = v.EmbedURL
		}
		fmt.Fprintf(Out, "video:       %s  %s\n", v.Kind, u)
	}
}

func init() { RegisterCmd(cardGetCmd{}) }
