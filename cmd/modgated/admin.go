package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	cli "github.com/urfave/cli/v2"

	"github.com/extmarket/modgate/models"
	"github.com/extmarket/modgate/moderation"
	"github.com/extmarket/modgate/moderation/store"
)

// Bulk review commands: run the same decision over every pending record,
// matching what a moderator would do from the review screen one by one.

var bulkFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "type",
		Usage: "restrict to one subject type",
	},
	&cli.StringFlag{
		Name:     "reviewer",
		Usage:    "username recorded as the deciding moderator",
		Required: true,
	},
	&cli.StringFlag{
		Name:  "reason",
		Usage: "decision reason",
	},
}

var approveAllCmd = &cli.Command{
	Name:  "approve-all",
	Usage: "approve every pending record",
	Flags: bulkFlags,
	Action: func(cctx *cli.Context) error {
		return runBulk(cctx, func(eng *moderation.Engine, ctx context.Context, rec *models.ModerationRecord, by, reason string) (string, error) {
			return eng.Approve(ctx, rec, by, reason)
		})
	},
}

var rejectAllCmd = &cli.Command{
	Name:  "reject-all",
	Usage: "reject every pending record",
	Flags: bulkFlags,
	Action: func(cctx *cli.Context) error {
		if cctx.String("reason") == "" {
			return fmt.Errorf("reject-all requires --reason")
		}
		return runBulk(cctx, func(eng *moderation.Engine, ctx context.Context, rec *models.ModerationRecord, by, reason string) (string, error) {
			return eng.Reject(ctx, rec, by, reason)
		})
	},
}

var setPendingAllCmd = &cli.Command{
	Name:  "set-pending-all",
	Usage: "reset every decided record back to pending",
	Flags: bulkFlags,
	Action: func(cctx *cli.Context) error {
		eng, stores, err := setupEngine(cctx, slog.Default())
		if err != nil {
			return err
		}
		ctx := context.Background()
		recs, err := stores.Records().Queue(ctx, store.QueueQuery{
			SubjectType: cctx.String("type"),
			Statuses:    []models.DecisionStatus{models.DecisionApproved, models.DecisionRejected},
		})
		if err != nil {
			return err
		}
		for i := range recs {
			msg, err := eng.SetPending(ctx, &recs[i], cctx.String("reviewer"), cctx.String("reason"))
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, msg)
		}
		fmt.Fprintf(os.Stdout, "reset %d records\n", len(recs))
		return nil
	},
}

type bulkDecisionFunc func(eng *moderation.Engine, ctx context.Context, rec *models.ModerationRecord, by, reason string) (string, error)

func runBulk(cctx *cli.Context, decide bulkDecisionFunc) error {
	eng, stores, err := setupEngine(cctx, slog.Default())
	if err != nil {
		return err
	}
	ctx := context.Background()

	recs, err := stores.Records().Queue(ctx, store.QueueQuery{
		SubjectType: cctx.String("type"),
		Statuses:    []models.DecisionStatus{models.DecisionPending},
	})
	if err != nil {
		return err
	}

	decided := 0
	for i := range recs {
		msg, err := decide(eng, ctx, &recs[i], cctx.String("reviewer"), cctx.String("reason"))
		if errors.Is(err, moderation.ErrAlreadyDecided) {
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, msg)
		decided++
	}
	fmt.Fprintf(os.Stdout, "decided %d of %d records\n", decided, len(recs))
	return nil
}
