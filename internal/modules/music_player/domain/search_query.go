package domain

import "strings"

// SearchSource is the Lavalink search prefix for a catalogue.
type SearchSource string

const (
	SourceYouTubeMusic SearchSource = "ytmsearch"
	SourceYouTube      SearchSource = "ytsearch"
	SourceSoundCloud   SearchSource = "scsearch"
	// SourceDirect marks a URL that Lavalink loads as-is.
	SourceDirect SearchSource = ""
)

// trackURLPrefix turns a remote track id into a loadable URL.
const trackURLPrefix = "https://music.youtube.com/watch?v="

// sourceShortcuts lets users pick a catalogue by prefixing the search, as in
// "sc: artist song".
var sourceShortcuts = map[string]SearchSource{
	"ytm": SourceYouTubeMusic,
	"yt":  SourceYouTube,
	"sc":  SourceSoundCloud,
}

// SearchQuery is user input normalized for the track searcher.
type SearchQuery struct {
	Query  string
	Source SearchSource
	IsURL  bool
}

// NewSearchQuery parses user input. URLs load directly, a known shortcut
// selects its catalogue and anything else searches YouTube Music.
func NewSearchQuery(input string) *SearchQuery {
	input = strings.TrimSpace(input)
	if isURL(input) {
		return &SearchQuery{Query: input, Source: SourceDirect, IsURL: true}
	}

	if prefix, rest, ok := strings.Cut(input, ":"); ok {
		if source, known := sourceShortcuts[strings.ToLower(strings.TrimSpace(prefix))]; known {
			return &SearchQuery{Query: strings.TrimSpace(rest), Source: source}
		}
	}
	return &SearchQuery{Query: input, Source: SourceYouTubeMusic}
}

// TrackQuery returns the query that loads exactly the remote track id.
func TrackQuery(id TrackID) *SearchQuery {
	return &SearchQuery{Query: trackURLPrefix + string(id), Source: SourceDirect, IsURL: true}
}

// LavalinkQuery formats the query as a Lavalink identifier.
func (q *SearchQuery) LavalinkQuery() string {
	if q.IsURL {
		return q.Query
	}
	return string(q.Source) + ":" + q.Query
}

func (q *SearchQuery) IsValid() bool {
	return q.Query != ""
}

func isURL(input string) bool {
	for _, prefix := range []string{"http://", "https://", "www."} {
		if strings.HasPrefix(input, prefix) {
			return true
		}
	}
	return false
}
