package cache

import (
	"context"
	"fmt"
	"time"
)

// Key formats. Only the first page of list endpoints is cached, so list keys
// carry no page component and a single DEL invalidates them.
const (
	UserKeyPrefix         = "user:%d"
	PostKeyPrefix         = "post:%d"
	CategoryKeyPrefix     = "category:%s"
	HomeFeedFirstPageKey  = "feed:home:p1"
	CategoryFeedKeyPrefix = "feed:category:%s:p1"
	PostCommentsKeyPrefix = "post:%d:comments:p1"
)

const (
	UserTTL     = 5 * time.Minute
	PostTTL     = 10 * time.Minute
	CategoryTTL = 10 * time.Minute
	FeedTTL     = time.Minute
	CommentsTTL = 2 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func CategoryKey(slug string) string {
	return fmt.Sprintf(CategoryKeyPrefix, slug)
}

func CategoryFeedKey(slug string) string {
	return fmt.Sprintf(CategoryFeedKeyPrefix, slug)
}

func PostCommentsKey(postID uint) string {
	return fmt.Sprintf(PostCommentsKeyPrefix, postID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidatePost clears the post detail, its comment list, and the home feed.
// The category feed is cleared separately by callers that know the slug.
func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
	Invalidate(ctx, PostCommentsKey(postID))
	InvalidateHomeFeed(ctx)
}

func InvalidateHomeFeed(ctx context.Context) {
	Invalidate(ctx, HomeFeedFirstPageKey)
}

func InvalidateCategory(ctx context.Context, slug string) {
	Invalidate(ctx, CategoryKey(slug))
	Invalidate(ctx, CategoryFeedKey(slug))
}

func InvalidatePostComments(ctx context.Context, postID uint) {
	Invalidate(ctx, PostCommentsKey(postID))
	Invalidate(ctx, PostKey(postID))
}
