package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedPost struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func setupTestCache(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client = nil })
	return mr
}

func TestGetSetJSON_RoundTrip(t *testing.T) {
	setupTestCache(t)
	ctx := context.Background()

	in := cachedPost{ID: 7, Title: "Winter in the city"}
	require.NoError(t, SetJSON(ctx, PostKey(7), in, PostTTL))

	var out cachedPost
	found, err := GetJSON(ctx, PostKey(7), &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)
}

func TestGetJSON_MissAndNilClient(t *testing.T) {
	setupTestCache(t)
	ctx := context.Background()

	var out cachedPost
	found, err := GetJSON(ctx, PostKey(404), &out)
	require.NoError(t, err)
	assert.False(t, found)

	client = nil
	found, err = GetJSON(ctx, PostKey(404), &out)
	require.NoError(t, err)
	assert.False(t, found, "nil client must degrade to a miss")
	require.NoError(t, SetJSON(ctx, PostKey(404), out, time.Minute))
}

func TestAside_FetchOnceThenHit(t *testing.T) {
	setupTestCache(t)
	ctx := context.Background()

	fetches := 0
	fetch := func(dest *cachedPost) func() error {
		return func() error {
			fetches++
			*dest = cachedPost{ID: 3, Title: "From the database"}
			return nil
		}
	}

	var first cachedPost
	require.NoError(t, Aside(ctx, PostKey(3), &first, PostTTL, fetch(&first)))
	assert.Equal(t, 1, fetches)
	assert.Equal(t, "From the database", first.Title)

	var second cachedPost
	require.NoError(t, Aside(ctx, PostKey(3), &second, PostTTL, fetch(&second)))
	assert.Equal(t, 1, fetches, "second read must be served from cache")
	assert.Equal(t, first, second)
}

func TestInvalidatePost_ClearsDetailCommentsAndFeed(t *testing.T) {
	mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, PostKey(5), cachedPost{ID: 5}, PostTTL))
	require.NoError(t, SetJSON(ctx, PostCommentsKey(5), []string{"a"}, CommentsTTL))
	require.NoError(t, SetJSON(ctx, HomeFeedFirstPageKey, []uint{5}, FeedTTL))

	InvalidatePost(ctx, 5)

	for _, key := range []string{PostKey(5), PostCommentsKey(5), HomeFeedFirstPageKey} {
		assert.False(t, mr.Exists(key), "key %s should be gone", key)
	}
}

func TestInvalidateCategory_ClearsCategoryAndItsFeed(t *testing.T) {
	mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, CategoryKey("travel"), map[string]string{"slug": "travel"}, CategoryTTL))
	require.NoError(t, SetJSON(ctx, CategoryFeedKey("travel"), []uint{1, 2}, FeedTTL))

	InvalidateCategory(ctx, "travel")

	assert.False(t, mr.Exists(CategoryKey("travel")))
	assert.False(t, mr.Exists(CategoryFeedKey("travel")))
}
