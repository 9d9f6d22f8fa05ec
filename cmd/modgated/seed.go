package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/brianvoe/gofakeit/v6"
	cli "github.com/urfave/cli/v2"

	"github.com/extmarket/modgate/moderation"
	"github.com/extmarket/modgate/moderation/schema"
)

var seedCmd = &cli.Command{
	Name:  "seed",
	Usage: "submit fake listings to populate the review queue",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "count",
			Usage: "number of listings to generate",
			Value: 20,
		},
	},
	Action: func(cctx *cli.Context) error {
		eng, _, err := setupEngine(cctx, slog.Default())
		if err != nil {
			return err
		}
		ctx := context.Background()

		for i := 0; i < cctx.Int("count"); i++ {
			listing := fakeListing(i)
			rec, status, err := eng.Submit(ctx, listing, gofakeit.Username(), moderation.SubmitOptions{})
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "submitted %s: %s\n", rec.SubjectKey(), status)
		}
		return nil
	},
}

func fakeListing(i int) *Listing {
	return &Listing{
		ID:          fmt.Sprintf("seed-%04d", i),
		Title:       gofakeit.AppName(),
		Summary:     gofakeit.Sentence(12),
		HomepageURL: gofakeit.URL(),
		Category:    gofakeit.Number(0, 3),
		Icon: schema.FileRef{
			Name: "icon.png",
			URL:  gofakeit.URL() + "/icon.png",
		},
		Archive: schema.FileRef{
			Name: "release.zip",
			URL:  gofakeit.URL() + "/release.zip",
		},
		Author: schema.Ref{Type: "user", ID: gofakeit.Username()},
	}
}
