package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/toonshare/internal/domain"
)

// fakeClock advances by one second on every call.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func openTestStore(t *testing.T, opts ...Option) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)

	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "data", "shares.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func TestNewIDShape(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-f]{12}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		assert.Regexp(t, re, id)
		assert.False(t, seen[id], "NewID() returned a duplicate")
		seen[id] = true
	}
}

func TestSaveCreatesDistinctShares(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	owner := Owner{Email: "user@example.com", Name: "User"}

	id1, err := store.Save(ctx, "", owner, "first", nil, true)
	require.NoError(t, err)
	id2, err := store.Save(ctx, "", owner, "second", nil, false)
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
	assert.Len(t, id1, idLength)

	doc, err := store.Get(ctx, id1)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "first", doc.Title)
	assert.Equal(t, "user@example.com", doc.OwnerEmail)
	assert.Equal(t, "User", doc.OwnerName)
	assert.True(t, doc.IsPublic)
	assert.Equal(t, doc.CreatedAt, doc.UpdatedAt)
	assert.Empty(t, doc.Items)
}

func TestSaveUpdateKeepsOwnerAndCreatedAt(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	id, err := store.Save(ctx, "", Owner{Email: "owner@example.com", Name: "Owner"}, "mine", []domain.Item{{Title: "A"}}, false)
	require.NoError(t, err)
	before, err := store.Get(ctx, id)
	require.NoError(t, err)

	items := []domain.Item{{Title: "A"}, {Title: "B", Link: "b.com"}}
	got, err := store.Save(ctx, id, Owner{Email: "admin@example.com", Name: "Admin"}, "renamed", items, true)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	after, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, after)

	assert.Equal(t, "owner@example.com", after.OwnerEmail)
	assert.Equal(t, "Owner", after.OwnerName)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.Equal(t, "renamed", after.Title)
	assert.True(t, after.IsPublic)
	require.Len(t, after.Items, 2)
	assert.Equal(t, "http://b.com", after.Items[1].Link)
	assert.False(t, after.Items[1].UpdatedAt.IsZero())

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM shares").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSaveUnknownKey(t *testing.T) {
	store, _ := openTestStore(t)

	_, err := store.Save(context.Background(), "000000000000", Owner{Email: "x@example.com"}, "t", nil, true)
	assert.True(t, errors.Is(err, domain.ErrShareNotFound))
}

func TestSaveRetriesOnCollision(t *testing.T) {
	ids := []string{"aaaaaaaaaaaa", "aaaaaaaaaaaa", "bbbbbbbbbbbb"}
	next := 0
	gen := func() string {
		id := ids[next]
		next++
		return id
	}
	store, _ := openTestStore(t, WithIDGenerator(gen))
	ctx := context.Background()

	first, err := store.Save(ctx, "", Owner{Email: "a@example.com"}, "a", nil, true)
	require.NoError(t, err)
	second, err := store.Save(ctx, "", Owner{Email: "b@example.com"}, "b", nil, true)
	require.NoError(t, err)

	assert.Equal(t, "aaaaaaaaaaaa", first)
	assert.Equal(t, "bbbbbbbbbbbb", second)
}

func TestGetMissing(t *testing.T) {
	store, _ := openTestStore(t)

	doc, err := store.Get(context.Background(), "doesnotexist")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestListPublic(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	owner := Owner{Email: "u@example.com", Name: "U"}

	pub1, err := store.Save(ctx, "", owner, "pub1", nil, true)
	require.NoError(t, err)
	_, err = store.Save(ctx, "", owner, "private", nil, false)
	require.NoError(t, err)
	pub2, err := store.Save(ctx, "", owner, "pub2", nil, true)
	require.NoError(t, err)

	// Touching pub1 moves it to the front.
	_, err = store.Save(ctx, pub1, owner, "pub1 again", nil, true)
	require.NoError(t, err)

	list, err := store.ListPublic(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, pub1, list[0].ID)
	assert.Equal(t, pub2, list[1].ID)
	assert.Equal(t, "U", list[0].OwnerName)
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].UpdatedAt.After(list[i-1].UpdatedAt), "listing must be non-increasing by UpdatedAt")
	}

	limited, err := store.ListPublic(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := store.ListPublic(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPublicFlagToggleUpdatesTimestamp(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	owner := Owner{Email: "u@example.com"}

	id, err := store.Save(ctx, "", owner, "t", nil, true)
	require.NoError(t, err)
	before, err := store.Get(ctx, id)
	require.NoError(t, err)

	_, err = store.Save(ctx, id, owner, "t", before.Items, false)
	require.NoError(t, err)
	after, err := store.Get(ctx, id)
	require.NoError(t, err)

	assert.False(t, after.IsPublic)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))

	list, err := store.ListPublic(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTimeRoundTripOrdering(t *testing.T) {
	a := time.Date(2024, 1, 1, 0, 0, 9, 0, time.UTC)
	b := time.Date(2024, 1, 1, 0, 0, 10, 5, time.UTC)
	assert.Less(t, formatTime(a), formatTime(b))

	parsed, err := parseTime(formatTime(b))
	require.NoError(t, err)
	assert.True(t, parsed.Equal(b))

	legacy, err := parseTime("2024-01-01T00:00:10Z")
	require.NoError(t, err)
	assert.True(t, legacy.Equal(time.Date(2024, 1, 1, 0, 0, 10, 0, time.UTC)))
}
