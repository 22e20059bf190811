package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/paragondesignz/spachat/chatlog"
	bboltstorage "github.com/paragondesignz/spachat/storage/bbolt"
)

var (
	exportDataDir string
	exportOut     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all chat transcripts as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		objects, err := bboltstorage.NewStoreFromFile(exportDataDir+"/spachat.db", nil)
		if err != nil {
			return fmt.Errorf("failed to open object storage: %w", err)
		}
		defer objects.Close()

		out := cmd.OutOrStdout()
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		count, err := exportChats(cmd.Context(), chatlog.NewStore(objects), out)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d chat transcripts\n", count)
		return nil
	},
}

// exportChats writes every transcript to w as one indented JSON document and
// returns how many were exported.
func exportChats(ctx context.Context, chats *chatlog.Store, w io.Writer) (int, error) {
	logs, err := chats.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing chat logs: %w", err)
	}

	doc := struct {
		ExportedAt time.Time      `json:"exported_at"`
		Chats      []*chatlog.Log `json:"chats"`
	}{
		ExportedAt: time.Now().UTC(),
		Chats:      logs,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return 0, err
	}
	return len(logs), nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportDataDir, "data-dir", "./data", "Directory for persistent data")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default stdout)")
}
