package scrape

import "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/entity"

// instagramAdapter is the default platform: {"usernames": [...], "max_count": N}.
type instagramAdapter struct{ actor string }

func (p *instagramAdapter) actorID() string { return p.actor }

func (p *instagramAdapter) buildInput(accounts []string, maxPerAccount int) map[string]any {
	return map[string]any{
		"usernames": accounts,
		"max_count": maxPerAccount,
	}
}

func (p *instagramAdapter) normalize(item map[string]any) (*entity.CanonicalProfile, bool) {
	username := firstString(item, "username")
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
		DisplayName:    firstString(item, "full_name", "fullname"),
		FollowerCount:  firstInt(item, "follower_count"),
		FollowingCount: firstInt(item, "following_count"),
		PostsCount:     firstInt(item, "posts_count"),
	}, true
}
