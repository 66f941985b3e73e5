package handlers

import (
	"net/http"
	"strconv"

	"github.com/MrSnakeDoc/toonshare/internal/domain"
	"github.com/MrSnakeDoc/toonshare/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toonshare/internal/logger"
)

type discoverEntry struct {
	domain.ShareSummary
	URL string `json:"url"`
}

type discoverResponse struct {
	Shares []discoverEntry `json:"shares"`
}

// Discover lists public shares, most recently updated first.
// ?limit= may lower the configured maximum, never raise it.
func Discover(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := d.DiscoverLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			if n < limit {
				limit = n
			}
		}

		shares, err := listPublic(d, r, limit)
		if err != nil {
			d.Logger.Warn("failed to list public shares", logger.Error(err))
			writeError(w, http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable))
			return
		}
		writeJSON(w, http.StatusOK, discoverResponse{Shares: shares})
	}
}

// discover is the home page variant: a store error shows an empty listing.
func discover(d deps.Deps, r *http.Request, limit int) []discoverEntry {
	shares, err := listPublic(d, r, limit)
	if err != nil {
		d.Logger.Warn("failed to list public shares", logger.Error(err))
		return []discoverEntry{}
	}
	return shares
}

func listPublic(d deps.Deps, r *http.Request, limit int) ([]discoverEntry, error) {
	summaries, err := d.Shares.ListPublic(r.Context(), limit)
	if err != nil {
		return nil, err
	}

	out := make([]discoverEntry, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, discoverEntry{ShareSummary: s, URL: domain.ShareURL(d.BaseURL, s.ID)})
	}
	return out, nil
}
