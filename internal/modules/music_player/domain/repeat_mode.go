package domain

// RepeatMode controls what playback does when an item ends.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota // Stop after the last item
	RepeatOne                   // Replay the current item
	RepeatAll                   // Wrap to the first item after the last
)

// String returns a human-readable representation of the repeat mode.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOne:
		return "one"
	case RepeatAll:
		return "all"
	default:
		return "off"
	}
}

// Next cycles off -> one -> all -> off.
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatOff:
		return RepeatOne
	case RepeatOne:
		return RepeatAll
	default:
		return RepeatOff
	}
}

// ParseRepeatMode converts a string to a RepeatMode, defaulting to RepeatOff.
func ParseRepeatMode(s string) RepeatMode {
	switch s {
	case "one":
		return RepeatOne
	case "all":
		return RepeatAll
	default:
		return RepeatOff
	}
}

// NextIndex returns the index that follows current in a timeline of count items,
// or -1 when playback should stop.
func (m RepeatMode) NextIndex(current, count int) int {
	if count == 0 {
		return -1
	}
	switch m {
	case RepeatOne:
		return current
	case RepeatAll:
		return (current + 1) % count
	default:
		if current+1 >= count {
			return -1
		}
		return current + 1
	}
}
