package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/encheres-immo/scraper/internal/daemon"
	"github.com/encheres-immo/scraper/internal/logging"
	"github.com/encheres-immo/scraper/internal/progress"
)

func newIncrementalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "incremental",
		Short: "Re-walk the index and every tribunal's current hearing",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, st, _, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer st.Close()

			logging.Infof("starting incremental scrape")
			return orch.RunIncremental(context.Background())
		},
	}
}

func newFullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "full",
		Short: "Run every phase: index, hearings, detail backfill, starting-price backfill, surface backfill",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, st, _, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer st.Close()

			logging.Infof("starting full scrape")
			return orch.RunFull(context.Background())
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var tribunals []string
	var maxHearings int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Walk past hearings and record sale outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, st, _, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer st.Close()

			logging.Infof("starting history backfill (tribunals=%v)", tribunals)
			return orch.RunHistoryBackfill(context.Background(), tribunals, maxHearings)
		},
	}
	cmd.Flags().StringSliceVar(&tribunals, "tribunals", nil, "restrict to these tribunal slugs (default: all)")
	cmd.Flags().IntVar(&maxHearings, "max-hearings", 0, "cap hearings walked per tribunal (0 = configured default)")
	return cmd
}

func newBackfillCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Visit listings missing their detail page",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, st, _, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer st.Close()

			logging.Infof("starting detail backfill (limit %d)", limit)
			return orch.RunDetailBackfill(context.Background(), limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "cap the number of listings visited (0 = no cap)")
	return cmd
}

func newMapBackfillCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "map-backfill",
		Short: "Visit listings missing a starting price",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, st, _, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer st.Close()

			logging.Infof("starting starting-price backfill (limit %d)", limit)
			return orch.RunStartingPriceBackfill(context.Background(), limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "cap the number of listings visited (0 = no cap)")
	return cmd
}

func newDaemonCmd() *cobra.Command {
	var cronExpr, job string
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Re-fire a workflow on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, st, _, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logging.Infof("starting daemon (cron=%q job=%q)", cronExpr, job)
			return daemon.New(orch).Start(ctx, cronExpr, job)
		},
	}
	cmd.Flags().StringVar(&cronExpr, "cron", "", "cron expression the job fires on (required)")
	cmd.Flags().StringVar(&job, "job", daemon.JobIncremental, "workflow to re-fire: incremental, full, history, detail-backfill, map-backfill, surface-backfill")
	_ = cmd.MarkFlagRequired("cron")
	return cmd
}

func newProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Print the current scrape_progress.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			snap, err := progress.Read(cfg.DataPath)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
}

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Request cancellation of the currently running workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if err := progress.RequestCancel(cfg.DataPath); err != nil {
				return err
			}
			logging.Infof("cancellation requested")
			return nil
		},
	}
}

func newSurfaceBackfillCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "surface-backfill",
		Short: "Visit listings missing a surface area",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, st, _, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer st.Close()

			logging.Infof("starting surface backfill (limit %d)", limit)
			return orch.RunSurfaceBackfill(context.Background(), limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "cap the number of listings visited (0 = no cap)")
	return cmd
}
