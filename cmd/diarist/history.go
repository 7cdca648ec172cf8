package main

import (
	"fmt"
	"os"

	"github.com/diarist/server/internal/application"
	"github.com/diarist/server/internal/domain/valueobject"
	"github.com/diarist/server/internal/interfaces/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type HistoryFlags struct {
	UserID string
	Format string
	Width  int
}

func (f *HistoryFlags) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.UserID, "user", "", "Owner user id of the conversation (required)")
	fs.StringVar(&f.Format, "format", "text", "Output format: text, json or yaml")
	fs.IntVar(&f.Width, "width", 100, "Wrap width for text output")
}

func NewHistoryCommand() *cobra.Command {
	f := &HistoryFlags{}

	cmd := &cobra.Command{
		Use:   "history <conversation-id>",
		Short: "Replay a stored conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.UserID == "" {
				return fmt.Errorf("--user is required")
			}
			if logLevel == "" {
				logLevel = "warn"
			}
			cfg, log, _, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			history, closeDB, err := application.NewHistoryReader(cfg, log)
			if err != nil {
				return err
			}
			defer closeDB()

			messages, err := history.Replay(cmd.Context(), valueobject.NewIdentity(f.UserID, ""), args[0])
			if err != nil {
				return err
			}

			if f.Format == "text" {
				fmt.Fprint(os.Stdout, cli.NewRenderer(f.Width, "").RenderHistory(args[0], messages))
				return nil
			}
			return cli.Encode(os.Stdout, f.Format, messages)
		},
	}

	f.BindFlags(cmd.Flags())
	return cmd
}
