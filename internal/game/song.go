package game

// Song is one immutable game-data record. The audio and image fields are
// references (a local asset path or an HTTPS URL) resolved by the playback
// layer, never by the rule engine.
type Song struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Year   int    `json:"year"`
	Audio  string `json:"audio,omitempty"`
	Image  string `json:"image,omitempty"`
}

// Team is one scoring unit in the team variant. ID is the team's index into
// the room's team list.
type Team struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
	Color string `json:"color,omitempty"`
}

// Player is one scoring unit in the hot-seat variant.
type Player struct {
	Name        string `json:"name"`
	Score       int    `json:"score"`
	CardsPlaced int    `json:"cardsPlaced"`
}
