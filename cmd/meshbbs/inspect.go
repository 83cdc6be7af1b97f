package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"meshbbs/internal/app"
	"meshbbs/pkg/board"
	"meshbbs/pkg/logger"
	"meshbbs/pkg/state"
)

var (
	inspectNewest int

	inspectCmd = &cobra.Command{
		Use:   "inspect",
		Short: "Print per-topic message counts and the newest subjects.",
		Long:  "Reads the board from persistence. Stop a running pebble-backed server first; the store is locked while open.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eff := loadConfig(nil)
			logger.InitTo(io.Discard, eff.Config.Logging.Level)
			defer logger.Sync()

			p, err := app.OpenPersister(eff.Config.Data.Backend, state.PathsFor(eff.DataDir))
			if err != nil {
				return err
			}
			b := board.New(eff.Config.BoardConfig(), p)
			defer b.Close()
			if err := b.Load(cmd.Context()); err != nil {
				return fmt.Errorf("load board: %w", err)
			}
			printBoard(cmd.OutOrStdout(), b, inspectNewest)
			return nil
		},
	}
)

func init() {
	inspectCmd.Flags().IntVar(&inspectNewest, "newest", 3, "subjects to show per topic")
}

func printBoard(w io.Writer, b *board.Store, newest int) {
	total := 0
	for _, t := range b.Topics() {
		n := b.Count(t.ID)
		total += n
		fmt.Fprintf(w, "[%s] %s: %s\n", t.ID, t.Name, humanize.Comma(int64(n)))
		msgs, err := b.Page(t.ID, 0, newest)
		if err != nil {
			continue
		}
		for _, m := range msgs {
			fmt.Fprintf(w, "    %-28s %s, %s\n", m.Subject, m.Author, humanize.Time(m.CreatedAt))
		}
	}
	fmt.Fprintf(w, "total: %s messages\n", humanize.Comma(int64(total)))
}
