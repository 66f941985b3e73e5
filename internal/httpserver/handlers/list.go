package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/toonshare/internal/domain"
	"github.com/MrSnakeDoc/toonshare/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toonshare/internal/logger"
	"github.com/MrSnakeDoc/toonshare/internal/metrics"
	"github.com/MrSnakeDoc/toonshare/internal/store/sqlite"
)

type sortRequest struct {
	Mode string `json:"mode"`
}

type publishRequest struct {
	Title    string `json:"title"`
	IsPublic *bool  `json:"is_public"`
}

type publishResponse struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Message string `json:"message"`
}

type addItemResponse struct {
	Index int           `json:"index"`
	Draft draftResponse `json:"draft"`
}

// AddItem appends a blank item to the session draft.
func AddItem(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionOf(d, r)
		idx := sess.Draft.AddBlankItem(d.Now())
		sess.Touch()

		writeJSON(w, http.StatusCreated, addItemResponse{Index: idx, Draft: newDraftResponse(sess)})
	}
}

// UpdateItem patches title, link or note of a draft item.
func UpdateItem(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionOf(d, r)
		idx, ok := itemIndex(w, r)
		if !ok {
			return
		}

		var patch domain.ItemPatch
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		changed, err := sess.Draft.UpdateItem(idx, patch, d.Now())
		if err != nil {
			writeItemError(w, err)
			return
		}
		if changed {
			sess.Touch()
		}
		writeJSON(w, http.StatusOK, newDraftResponse(sess))
	}
}

// RemoveItem deletes a draft item.
func RemoveItem(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionOf(d, r)
		idx, ok := itemIndex(w, r)
		if !ok {
			return
		}

		if err := sess.Draft.RemoveItem(idx); err != nil {
			writeItemError(w, err)
			return
		}
		sess.Touch()
		writeJSON(w, http.StatusOK, newDraftResponse(sess))
	}
}

// SetSort changes how the draft is presented. Unknown modes fall back to recent.
func SetSort(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionOf(d, r)

		var req sortRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		sess.SetSortMode(domain.ParseSortMode(req.Mode))
		writeJSON(w, http.StatusOK, newDraftResponse(sess))
	}
}

// Publish stores the draft as a new share owned by the signed-in user.
func Publish(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionOf(d, r)
		if !requireLogin(d, w, sess) {
			return
		}

		var req publishRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		title := strings.TrimSpace(req.Title)
		if title == "" {
			title = t(d, sess, "default_share_title")
		}
		isPublic := req.IsPublic == nil || *req.IsPublic

		owner := sqlite.Owner{Email: sess.Identity.Email, Name: ownerName(sess.Identity)}
		id, err := d.Shares.Save(r.Context(), "", owner, title, sess.Draft.Snapshot(d.Now()), isPublic)
		if err != nil {
			d.Logger.Error("failed to publish share",
				logger.String("owner", owner.Email),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			return
		}
		metrics.SharesSaved.WithLabelValues(metrics.OutcomeCreated).Inc()

		d.Logger.Info("share published",
			logger.String("share_id", id),
			logger.Int("items", sess.Draft.Len()),
			logger.Bool("public", isPublic))

		writeJSON(w, http.StatusCreated, publishResponse{
			ID:      id,
			URL:     domain.ShareURL(d.BaseURL, id),
			Message: t(d, sess, "create_share_success"),
		})
	}
}

func itemIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return 0, false
	}
	return idx, true
}

func writeItemError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrItemIndex) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
