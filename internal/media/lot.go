package media

import (
	"fmt"
	"strings"
)

// Lot is the enumerated kind of a media item.
type Lot string

const (
	LotUnknown     Lot = ""
	LotMovie       Lot = "movie"
	LotShow        Lot = "show"
	LotAnime       Lot = "anime"
	LotManga       Lot = "manga"
	LotBook        Lot = "book"
	LotAudioBook   Lot = "audio_book"
	LotPodcast     Lot = "podcast"
	LotVideoGame   Lot = "video_game"
	LotVisualNovel Lot = "visual_novel"
	LotMusic       Lot = "music"
	LotComicBook   Lot = "comic_book"
)

var knownLots = []Lot{
	LotMovie, LotShow, LotAnime, LotManga, LotBook, LotAudioBook,
	LotPodcast, LotVideoGame, LotVisualNovel, LotMusic, LotComicBook,
}

// Lots returns every known lot in declaration order.
func Lots() []Lot {
	return append([]Lot(nil), knownLots...)
}

func (l Lot) String() string {
	if l == LotUnknown {
		return "unknown"
	}
	return string(l)
}

// ParseLot accepts the canonical names plus common aliases ("tv", "series").
func ParseLot(value string) (Lot, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	switch normalized {
	case "tv", "series", "tv_show":
		return LotShow, nil
	case "film":
		return LotMovie, nil
	case "game":
		return LotVideoGame, nil
	case "audiobook":
		return LotAudioBook, nil
	}
	for _, lot := range knownLots {
		if string(lot) == normalized {
			return lot, nil
		}
	}
	return LotUnknown, fmt.Errorf("unknown media lot %q", value)
}

func (l Lot) MarshalText() ([]byte, error) {
	return []byte(l), nil
}

func (l *Lot) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*l = LotUnknown
		return nil
	}
	parsed, err := ParseLot(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
