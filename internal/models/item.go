package models

// Item is the kind-independent projection of a LiveStream, Movie or Series
// used by listing grids and search.
type Item struct {
	Kind       MediaKind `json:"kind"`
	ID         ID        `json:"id"`
	Num        int       `json:"num,omitempty"`
	Name       string    `json:"name"`
	Icon       string    `json:"icon,omitempty"`
	CategoryID ID        `json:"category_id,omitempty"`
	Extension  string    `json:"extension,omitempty"`
	EPGChannel string    `json:"epg_channel_id,omitempty"`
	Rating     float64   `json:"rating,omitempty"`
}

// ItemFromLive projects a live stream.
func ItemFromLive(s LiveStream) Item {
	return Item{
		Kind:       KindLive,
		ID:         s.StreamID,
		Num:        s.Num.Int(),
		Name:       s.Name,
		Icon:       s.StreamIcon,
		CategoryID: s.CategoryID,
		EPGChannel: s.EPGChannelID,
	}
}

// ItemFromMovie projects a movie.
func ItemFromMovie(m Movie) Item {
	return Item{
		Kind:       KindMovie,
		ID:         m.StreamID,
		Num:        m.Num.Int(),
		Name:       m.Name,
		Icon:       m.StreamIcon,
		CategoryID: m.CategoryID,
		Extension:  m.ContainerExtension,
		Rating:     m.Rating5Based.Float(),
	}
}

// ItemFromSeries projects a series.
func ItemFromSeries(s Series) Item {
	return Item{
		Kind:       KindSeries,
		ID:         s.SeriesID,
		Num:        s.Num.Int(),
		Name:       s.Name,
		Icon:       s.Cover,
		CategoryID: s.CategoryID,
		Rating:     s.Rating5Based.Float(),
	}
}
