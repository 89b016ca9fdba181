package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"KnowBase/internal/cli/model"
	"KnowBase/internal/config"
)

type attachCmd struct{}

func (attachCmd) Name() string { return "attach" }
func (attachCmd) Description() string {
	return "Загрузить файл (или видео с --video) и прикрепить к карточке"
}
func (attachCmd) Usage() string { return "attach [--video] <card-id> <path>" }

func (attachCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("attach", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	video := fs.Bool("video", false, "загрузить как видео")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if fs.NArg() != 2 {
		return ErrUsage
	}
	if err := requireLogin(); err != nil {
		return err
	}
	id, path := fs.Arg(0), fs.Arg(1)
	client := newClient(cfg)

	// карточка должна существовать до загрузки
	card, err := client.GetCard(ctx, id)
	if err != nil {
		return err
	}
	var in model.CardInput
	if *video {
		v, err := client.UploadVideo(ctx, path)
		if err != nil {
			return fmt.Errorf("upload: %w", err)
		}
		videos := append(card.Videos, v)
		in.Videos = &videos
		fmt.Fprintf(Out, "✓ Видео загружено: %s\n", v.URL)
	} else {
		f, err := client.UploadFile(ctx, path)
		if err != nil {
			return fmt.Errorf("upload: %w", err)
		}
		files := append(card.Files, f)
		in.Files = &files
		fmt.Fprintf(Out, "✓ Файл загружен: %s (%d байт)\n", f.URL, f.SizeBytes)
	}

	if _, err := client.UpdateCard(ctx, id, in); err != nil {
		return fmt.Errorf("attach to card: %w", err)
	}
	fmt.Fprintf(Out, "✓ Прикреплено к карточке %s\n", id)
	return nil
}

func init() { RegisterCmd(attachCmd{}) }
