package commands

import (
	"context"
	"fmt"
	"strings"

	"KnowBase/internal/cli/model"
	"KnowBase/internal/config"
)

type videoAddCmd struct{}

func (videoAddCmd) Name() string        { return "video-add" }
func (videoAddCmd) Description() string { return "Прикрепить ссылку на видео (YouTube, Vimeo, ...)" }
func (videoAddCmd) Usage() string       { return "video-add <card-id> <url> [<name>]" }

func (videoAddCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return ErrUsage
	}
	if err := requireLogin(); err != nil {
		return err
	}
	id, rawURL := args[0], args[1]
	client := newClient(cfg)

	v, err := client.EmbedVideo(ctx, rawURL, strings.Join(args[2:], " "))
	if err != nil {
		return err
	}
	card, err := client.GetCard(ctx, id)
	if err != nil {
		return err
	}
	// embed_url вычисляется сервером при выдаче, в карточке не храним
	videos := append(card.Videos, v)
	for i := range videos {
		videos[i].EmbedURL = ""
	}
	if _, err := client.UpdateCard(ctx, id, model.CardInput{Videos: &videos}); err != nil {
		return err
	}
	fmt.Fprintf(Out, "✓ Видео добавлено к карточке %s\n", id)
	return nil
}

func init() { RegisterCmd(videoAddCmd{}) }
