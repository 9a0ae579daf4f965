package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/onnwee/metasepia/alias"
	"github.com/onnwee/metasepia/command"
	"github.com/onnwee/metasepia/db"
	"github.com/onnwee/metasepia/format"
	"github.com/onnwee/metasepia/query"
)

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the open session, if any",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer database.Close()
		row, err := db.NewStore(database).CurrentSession(cmd.Context())
		if err != nil {
			return err
		}
		printCurrent(cmd.OutOrStdout(), row)
		return nil
	},
}

func printCurrent(w io.Writer, row *query.Row) {
	if row == nil {
		fmt.Fprintln(w, "no open session")
		return
	}
	fmt.Fprintf(w, "#%d %s on %s (%s) since %s, %s\n",
		row.ID, row.Presenters, row.Activity, row.ActivityType,
		row.StartTime.Format(time.RFC3339), format.Duration(row.DurationSeconds))
}

var closeCmd = &cobra.Command{
	Use:   "close",
	Short: "Close the open session now",
	Long: `Close the open session in the database.

A running bot keeps its own view of the session until the next topic change,
so prefer changing the topic; this is for cleaning up after a crash.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer database.Close()
		store := db.NewStore(database)
		row, err := store.CurrentSession(cmd.Context())
		if err != nil {
			return err
		}
		if row == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "no open session")
			return nil
		}
		if err := store.EndSession(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "closed #%d (%s)\n", row.ID, row.Presenters)
		return nil
	},
}

var askAs string

var askCmd = &cobra.Command{
	Use:   `ask "<command line>"`,
	Short: "Run a chat command against the database and print the reply",
	Example: `  sessionctl ask '!p s:arch'
  sessionctl ask '!total g:celeste'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer database.Close()
		return runAsk(cmd.Context(), cmd.OutOrStdout(), db.NewStore(database), command.Config{
			Prefix: cfg.CommandPrefix,
			Nick:   cfg.IRCNick,
		}, alias.NewResolver(cfg.Aliases), strings.Join(args, " "))
	},
}

func init() {
	askCmd.Flags().StringVar(&askAs, "as", "operator", "nick the command is sent as")
}

// writerSender prints replies instead of sending them.
type writerSender struct {
	w io.Writer
}

func (s writerSender) SendMessage(destination, text string) error {
	_, err := fmt.Fprintln(s.w, text)
	return err
}

func (s writerSender) SendNotice(destination, text string) error {
	_, err := fmt.Fprintf(s.w, "[notice] %s\n", text)
	return err
}

func runAsk(ctx context.Context, w io.Writer, reader command.SessionReader, cfg command.Config, aliases *alias.Resolver, line string) error {
	if cfg.Prefix != "" && !strings.HasPrefix(line, cfg.Prefix) {
		line = cfg.Prefix + line
	}
	d := command.NewDispatcher(cfg, writerSender{w: w}, reader, aliases)
	d.Dispatch(ctx, askAs, "sessionctl", line)
	return nil
}
