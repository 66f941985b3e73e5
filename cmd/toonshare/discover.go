package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/toonshare/internal/domain"
	"github.com/MrSnakeDoc/toonshare/internal/store/sqlite"
	"github.com/MrSnakeDoc/toonshare/internal/utils"
)

var (
	discoverDB      string
	discoverLimit   int
	discoverBaseURL string
	discoverJSON    bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List public shares from the share database",
	Long: `Discover prints the public shares, most recently updated first, straight
from the SQLite share database. The server does not need to be running.

Example:
  toonshare discover --db shares.db --limit 20
  toonshare discover --json`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().StringVar(&discoverDB, "db", envOr("TOONSHARE_SQLITE_PATH", "shares.db"), "path to the share database")
	discoverCmd.Flags().IntVar(&discoverLimit, "limit", 100, "maximum number of shares to list")
	discoverCmd.Flags().StringVar(&discoverBaseURL, "base-url", envOr("TOONSHARE_BASE_URL", "http://localhost:8080/"), "base URL used to print share links")
	discoverCmd.Flags().BoolVar(&discoverJSON, "json", false, "print one JSON object per line")
}

type discoverRow struct {
	domain.ShareSummary
	URL string `json:"url"`
}

func runDiscover(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(discoverDB); err != nil {
		return fmt.Errorf("open share database %s: %w", discoverDB, err)
	}

	store, err := sqlite.Open(cmd.Context(), discoverDB)
	if err != nil {
		return err
	}
	defer utils.Close(store)

	shares, err := store.ListPublic(cmd.Context(), discoverLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if discoverJSON {
		enc := json.NewEncoder(out)
		for _, s := range shares {
			if err := enc.Encode(discoverRow{ShareSummary: s, URL: domain.ShareURL(discoverBaseURL, s.ID)}); err != nil {
				return err
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tOWNER\tUPDATED\tURL")
	for _, s := range shares {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Title, s.OwnerName, s.UpdatedAt.Local().Format(time.DateTime), domain.ShareURL(discoverBaseURL, s.ID))
	}
	return w.Flush()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
