package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/toonshare/internal/domain"
	"github.com/MrSnakeDoc/toonshare/internal/engagement"
	"github.com/MrSnakeDoc/toonshare/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toonshare/internal/logger"
	"github.com/MrSnakeDoc/toonshare/internal/metrics"
	"github.com/MrSnakeDoc/toonshare/internal/store/sqlite"
)

type commentRequest struct {
	Text string `json:"text"`
}

type commentsResponse struct {
	Added    bool          `json:"added"`
	Comments []commentView `json:"comments"`
}

type editModeRequest struct {
	Enabled bool `json:"enabled"`
}

type editModeResponse struct {
	EditMode bool `json:"edit_mode"`
}

type updateShareRequest struct {
	Title    *string       `json:"title"`
	IsPublic *bool         `json:"is_public"`
	Items    []domain.Item `json:"items"`
}

type importResponse struct {
	Imported int           `json:"imported"`
	Message  string        `json:"message"`
	Draft    draftResponse `json:"draft"`
}

// ToggleLike flips the like of the signed-in user on a share.
func ToggleLike(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionOf(d, r)
		if !requireLogin(d, w, sess) {
			return
		}
		doc, ok := loadShare(d, w, r, sess, chi.URLParam(r, "id"))
		if !ok {
			return
		}

		d.Engagement.ToggleLike(r.Context(), doc.ID, sess.Email())
		writeJSON(w, http.StatusOK, d.Engagement.Stats(r.Context(), doc.ID, sess.Email()))
	}
}

// AddComment appends a comment. Blank text is accepted and ignored.
func AddComment(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionOf(d, r)
		if !requireLogin(d, w, sess) {
			return
		}
		doc, ok := loadShare(d, w, r, sess, chi.URLParam(r, "id"))
		if !ok {
			return
		}

		var req commentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		ctx := r.Context()
		added := d.Engagement.AddComment(ctx, doc.ID, sess.Email(), sess.Identity.Name, req.Text)

		comments := d.Engagement.ListComments(ctx, doc.ID, engagement.DefaultCommentLimit)
		views := make([]commentView, 0, len(comments))
		for _, c := range comments {
			views = append(views, commentView{Name: c.DisplayName(), Text: c.Text, CreatedAt: c.CreatedAt})
		}

		status := http.StatusOK
		if added {
			status = http.StatusCreated
		}
		writeJSON(w, status, commentsResponse{Added: added, Comments: views})
	}
}

// SetEditMode toggles the session-local edit flag. Enabling requires edit rights.
func SetEditMode(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionOf(d, r)
		doc, ok := loadShare(d, w, r, sess, chi.URLParam(r, "id"))
		if !ok {
			return
		}

		var req editModeRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Enabled && !domain.CanEdit(doc, sess.Identity, d.AdminEmail) {
			writeError(w, http.StatusForbidden, t(d, sess, "forbidden"))
			return
		}

		sess.SetEditMode(doc.ID, req.Enabled)
		writeJSON(w, http.StatusOK, editModeResponse{EditMode: req.Enabled})
	}
}

// UpdateShare rewrites a share in place for its owner or the admin.
// Omitted fields keep their stored value; a blank title keeps the old one.
func UpdateShare(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionOf(d, r)
		if !requireLogin(d, w, sess) {
			return
		}
		doc, ok := loadShare(d, w, r, sess, chi.URLParam(r, "id"))
		if !ok {
			return
		}
		if !domain.CanEdit(doc, sess.Identity, d.AdminEmail) {
			writeError(w, http.StatusForbidden, t(d, sess, "forbidden"))
			return
		}

		var req updateShareRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		title := doc.Title
		if req.Title != nil && strings.TrimSpace(*req.Title) != "" {
			title = strings.TrimSpace(*req.Title)
		}
		isPublic := doc.IsPublic
		if req.IsPublic != nil {
			isPublic = *req.IsPublic
		}
		items := doc.Items
		if req.Items != nil {
			items = domain.MergeItemEdits(doc.Items, req.Items, d.Now())
		}

		if _, err := d.Shares.Save(r.Context(), doc.ID, sqlite.Owner{}, title, items, isPublic); err != nil {
			d.Logger.Error("failed to save share",
				logger.String("share_id", doc.ID),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			return
		}
		metrics.SharesSaved.WithLabelValues(metrics.OutcomeUpdated).Inc()

		d.Logger.Info("share updated",
			logger.String("share_id", doc.ID),
			logger.String("editor", sess.Email()))

		updated, ok := loadShare(d, w, r, sess, doc.ID)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, newShareInfo(d, updated))
	}
}

// ImportShare copies the items of a share into the session draft, skipping
// titles already present.
func ImportShare(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionOf(d, r)
		if !requireLogin(d, w, sess) {
			return
		}
		doc, ok := loadShare(d, w, r, sess, chi.URLParam(r, "id"))
		if !ok {
			return
		}

		n := sess.Draft.ImportFrom(doc.Items, d.Now())
		if n > 0 {
			sess.Touch()
		}

		writeJSON(w, http.StatusOK, importResponse{
			Imported: n,
			Message:  t(d, sess, "import_success"),
			Draft:    newDraftResponse(sess),
		})
	}
}
