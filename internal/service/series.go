package service

import (
	"context"
	"sort"
	"strconv"

	"github.com/voyagen/popcornview/internal/models"
)

// SeriesSource fetches series details. *xtream.Client implements it.
type SeriesSource interface {
	SeriesInfo(ctx context.Context, seriesID models.ID) (*models.SeriesInfo, error)
}

// SeasonEpisodes is one season of a series with its episodes in airing order.
type SeasonEpisodes struct {
	Label    string           `json:"label"`
	Name     string           `json:"name,omitempty"`
	Cover    string           `json:"cover,omitempty"`
	Episodes []models.Episode `json:"episodes"`
}

// SeriesDetail is the series dialog: metadata plus seasons ordered by number.
type SeriesDetail struct {
	ID      models.ID         `json:"id"`
	Info    models.SeriesMeta `json:"info"`
	Seasons []SeasonEpisodes  `json:"seasons"`
}

// LoadSeriesDetail fetches one series and groups its episodes by season.
// Seasons missing from the "seasons" array still appear, labelled by their
// episode-map key.
func LoadSeriesDetail(ctx context.Context, src SeriesSource, seriesID models.ID) (*SeriesDetail, error) {
	info, err := src.SeriesInfo(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	meta := make(map[string]models.Season, len(info.Seasons))
	for _, s := range info.Seasons {
		meta[s.SeasonNumber.String()] = s
	}

	d := &SeriesDetail{ID: seriesID, Info: info.Info, Seasons: make([]SeasonEpisodes, 0, len(info.Episodes))}
	for label, eps := range info.Episodes {
		sorted := append([]models.Episode(nil), eps...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].EpisodeNum.Int() < sorted[j].EpisodeNum.Int()
		})
		se := SeasonEpisodes{Label: label, Episodes: sorted}
		if m, ok := meta[label]; ok {
			se.Name = m.Name
			se.Cover = m.Cover
		}
		d.Seasons = append(d.Seasons, se)
	}
	sort.Slice(d.Seasons, func(i, j int) bool {
		return seasonLess(d.Seasons[i].Label, d.Seasons[j].Label)
	})
	return d, nil
}

// Episode returns the episode with id, searching every season.
func (d *SeriesDetail) Episode(id models.ID) (models.Episode, bool) {
	for _, s := range d.Seasons {
		for _, e := range s.Episodes {
			if e.ID == id {
				return e, true
			}
		}
	}
	return models.Episode{}, false
}

// seasonLess orders numeric labels numerically, before any other label.
func seasonLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}
