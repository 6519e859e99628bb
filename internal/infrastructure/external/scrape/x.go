package scrape

import "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/entity"

// xAdapter requests both directions of the graph (getFollowers/
// getFollowing); normalize does not tell the two apart, so every returned
// item with a screen_name is surfaced. The actor's response carries the trimmed field set the original kept (id_str,
// screen_name, name) with no engagement counters.
type xAdapter struct{ actor string }

func (p *xAdapter) actorID() string { return p.actor }

func (p *xAdapter) buildInput(accounts []string, maxPerAccount int) map[string]any {
	return map[string]any{
		"user_names":    accounts,
		"getFollowers":  true,
		"getFollowing":  true,
		"maxFollowers":  maxPerAccount,
		"maxFollowings": maxPerAccount,
	}
}

func (p *xAdapter) normalize(item map[string]any) (*entity.CanonicalProfile, bool) {
	username := firstString(item, "screen_name")
	if username == "" {
		return nil, false
	}
	id := firstString(item, "id_str", "id")
	if id == "" {
		id = username
	}
	return &entity.CanonicalProfile{
		ID:          id,
		Username:    username,
		DisplayName: firstString(item, "name"),
	}, true
}
