package scrape

import (
	"strings"

	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/entity"
)

// tiktokAdapter expects {"usernames": [...], "numFollowers": N} and
// normalizes handles that may arrive with an "@" prefix or as a full
// profile URL.
type tiktokAdapter struct{ actor string }

func (p *tiktokAdapter) actorID() string { return p.actor }

func (p *tiktokAdapter) buildInput(accounts []string, maxPerAccount int) map[string]any {
	clean := make([]string, 0, len(accounts))
	for _, account := range accounts {
		u := strings.TrimSpace(account)
		u = strings.TrimPrefix(u, "@")
		if idx := strings.Index(u, "tiktok.com/"); idx != -1 {
			u = strings.TrimPrefix(u[idx+len("tiktok.com/"):], "@")
		}
		clean = append(clean, u)
	}
	return map[string]any{
		"usernames":    clean,
		"numFollowers": maxPerAccount,
	}
}

func (p *tiktokAdapter) normalize(item map[string]any) (*entity.CanonicalProfile, bool) {
	username := firstString(item, "uniqueId", "unique_id", "username")
	if username == "" {
		return nil, false
	}
	id := firstString(item, "id")
	if id == "" {
		id = username
	}
	return &entity.CanonicalProfile{
		ID:             id,
		Username:       username,
		DisplayName:    firstString(item, "nickname"),
		FollowerCount:  firstInt(item, "followerCount", "follower_count", "followers"),
		FollowingCount: firstInt(item, "followingCount", "following_count", "following"),
		PostsCount:     firstInt(item, "videoCount", "aweme_count", "videos"),
	}, true
}
