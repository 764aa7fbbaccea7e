package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"site-survey/internal/survey/repository"
)

var (
	handoffsDB   string
	handoffsJSON bool
)

var handoffsCmd = &cobra.Command{
	Use:   "handoffs PROJECT",
	Short: "List exports handed off for a project",
	Long: `Reads the handoff journal kept by the survey service and lists every
export downloaded for the project, oldest first.`,
	Args: cobra.ExactArgs(1),
	RunE: runHandoffs,
}

func init() {
	handoffsCmd.Flags().StringVar(&handoffsDB, "db", "data/db/survey.db", "path to the survey journal database")
	handoffsCmd.Flags().BoolVar(&handoffsJSON, "json", false, "output handoffs as JSON")
	rootCmd.AddCommand(handoffsCmd)
}

func runHandoffs(cmd *cobra.Command, args []string) error {
	if handoffsDB == "" {
		return errors.New("--db is required")
	}

	db, err := repository.OpenSQLite(handoffsDB)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	repo := repository.New(db)
	if err := repo.Init(ctx); err != nil {
		return fmt.Errorf("init journal: %w", err)
	}

	list, err := repo.ListByProject(ctx, args[0])
	if err != nil {
		return fmt.Errorf("list handoffs: %w", err)
	}

	if handoffsJSON {
		data, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal handoffs: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(list) == 0 {
		cmd.Println("No handoffs found.")
		return nil
	}
	for _, h := range list {
		cmd.Printf("%s  %-16s %-32s %4d elements %4d connections %8d bytes\n",
			h.CreatedAt.Local().Format("2006-01-02 15:04:05"), h.Kind, h.Filename, h.Elements, h.Connections, h.Bytes)
	}
	return nil
}
