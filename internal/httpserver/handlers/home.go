package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/MrSnakeDoc/toonshare/internal/domain"
	"github.com/MrSnakeDoc/toonshare/internal/engagement"
	"github.com/MrSnakeDoc/toonshare/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toonshare/internal/logger"
	"github.com/MrSnakeDoc/toonshare/internal/session"
)

type draftResponse struct {
	SortMode domain.SortMode      `json:"sort_mode"`
	Items    []domain.IndexedItem `json:"items"`
}

type homeResponse struct {
	Lang     string            `json:"lang"`
	Identity *domain.Identity  `json:"identity"`
	Draft    draftResponse     `json:"draft"`
	Discover []discoverEntry   `json:"discover"`
	Messages map[string]string `json:"messages"`
}

type shareInfo struct {
	ID        string    `json:"id"`
	OwnerName string    `json:"owner_name"`
	Title     string    `json:"title"`
	IsPublic  bool      `json:"is_public"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	URL       string    `json:"url"`
}

type shareItem struct {
	domain.IndexedItem
	Thumbnail string `json:"thumbnail,omitempty"`
}

type commentView struct {
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type shareResponse struct {
	engagement.Stats
	Lang     string           `json:"lang"`
	Identity *domain.Identity `json:"identity"`
	Share    shareInfo        `json:"share"`
	Items    []shareItem      `json:"items"`
	Comments []commentView    `json:"comments"`
	CanEdit  bool             `json:"can_edit"`
	EditMode bool             `json:"edit_mode"`
}

// Home serves the share view when ?share= is present, the landing data otherwise.
func Home(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionOf(d, r)

		if id := strings.TrimSpace(r.URL.Query().Get("share")); id != "" {
			shareView(d, w, r, sess, id)
			return
		}

		writeJSON(w, http.StatusOK, homeResponse{
			Lang:     sess.Lang,
			Identity: sess.Identity,
			Draft:    newDraftResponse(sess),
			Discover: discover(d, r, d.DiscoverLimit),
			Messages: d.Messages.Bundle(sess.Lang),
		})
	}
}

func shareView(d deps.Deps, w http.ResponseWriter, r *http.Request, sess *session.Session, id string) {
	ctx := r.Context()

	doc, ok := loadShare(d, w, r, sess, id)
	if !ok {
		return
	}

	d.Engagement.RecordViewOncePerSession(ctx, doc.ID, sess)

	canEdit := domain.CanEdit(doc, sess.Identity, d.AdminEmail)
	editing := canEdit && sess.Editing(doc.ID)

	// Thumbnails are only resolved for the read-only view.
	var thumbs map[string]string
	if !editing {
		links := make([]string, 0, len(doc.Items))
		for _, it := range doc.Items {
			links = append(links, it.Link)
		}
		thumbs = d.Thumbnails.Thumbnails(ctx, links)
	}

	items := make([]shareItem, 0, len(doc.Items))
	for i, it := range doc.Items {
		items = append(items, shareItem{
			IndexedItem: domain.IndexedItem{Index: i, Item: it},
			Thumbnail:   thumbs[it.Link],
		})
	}

	comments := d.Engagement.ListComments(ctx, doc.ID, engagement.DefaultCommentLimit)
	views := make([]commentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, commentView{Name: c.DisplayName(), Text: c.Text, CreatedAt: c.CreatedAt})
	}

	d.Logger.Debug("share viewed",
		logger.String("share_id", doc.ID),
		logger.Bool("can_edit", canEdit))

	writeJSON(w, http.StatusOK, shareResponse{
		Lang:     sess.Lang,
		Identity: sess.Identity,
		Share:    newShareInfo(d, doc),
		Items:    items,
		Stats:    d.Engagement.Stats(ctx, doc.ID, sess.Email()),
		Comments: views,
		CanEdit:  canEdit,
		EditMode: editing,
	})
}

func newDraftResponse(sess *session.Session) draftResponse {
	return draftResponse{
		SortMode: sess.SortMode,
		Items:    sess.Draft.Sorted(sess.SortMode),
	}
}

func newShareInfo(d deps.Deps, doc *domain.ShareDocument) shareInfo {
	return shareInfo{
		ID:        doc.ID,
		OwnerName: doc.OwnerName,
		Title:     doc.Title,
		IsPublic:  doc.IsPublic,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
		URL:       domain.ShareURL(d.BaseURL, doc.ID),
	}
}
