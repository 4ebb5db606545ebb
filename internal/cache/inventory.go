package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix     = "user:%d"
	PostKeyPrefix     = "post:%s"
	PostStatsPrefix   = "post:%d:stats"
	CategoryTreeKey   = "categories:tree"
	CategoryKeyPrefix = "category:%s"
	TagListKey        = "tags:all"
	TaskStatsPrefix   = "user:%d:taskstats"
)

const (
	UserTTL         = 5 * time.Minute
	PostTTL         = 30 * time.Minute
	CategoryTreeTTL = 10 * time.Minute
	TagListTTL      = 10 * time.Minute
	StatsTTL        = 2 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PostKey(slug string) string {
	return fmt.Sprintf(PostKeyPrefix, slug)
}

func PostStatsKey(postID uint) string {
	return fmt.Sprintf(PostStatsPrefix, postID)
}

func CategoryKey(slug string) string {
	return fmt.Sprintf(CategoryKeyPrefix, slug)
}

func TaskStatsKey(userID uint) string {
	return fmt.Sprintf(TaskStatsPrefix, userID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidatePost drops both the cached post body and its stats entry.
func InvalidatePost(ctx context.Context, postID uint, slug string) {
	Invalidate(ctx, PostKey(slug))
	Invalidate(ctx, PostStatsKey(postID))
}

// InvalidateCategories drops the cached category tree and a single category.
func InvalidateCategories(ctx context.Context, slug string) {
	Invalidate(ctx, CategoryTreeKey)
	if slug != "" {
		Invalidate(ctx, CategoryKey(slug))
	}
}

func InvalidateTags(ctx context.Context) {
	Invalidate(ctx, TagListKey)
}
