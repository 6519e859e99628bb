package scrape

import "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/entity"

// threadsAdapter shares Instagram's field shape in the original
// (Meta-family platforms expose the same actor response schema).
type threadsAdapter struct{ actor string }

func (p *threadsAdapter) actorID() string { return p.actor }

func (p *threadsAdapter) buildInput(accounts []string, maxPerAccount int) map[string]any {
	return map[string]any{
		"usernames": accounts,
		"max_count": maxPerAccount,
	}
}

func (p *threadsAdapter) normalize(item map[string]any) (*entity.CanonicalProfile, bool) {
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
