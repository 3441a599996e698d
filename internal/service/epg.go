package service

import (
	"context"
	"time"

	"github.com/voyagen/popcornview/internal/models"
	"github.com/voyagen/popcornview/internal/xtream"
)

// EPGSource fetches short EPG listings. *xtream.Client implements it.
type EPGSource interface {
	ShortEPG(ctx context.Context, streamID models.ID, limit int) ([]models.ShortEPG, error)
}

// Guide is the decoded EPG of one live channel.
type Guide struct {
	StreamID   models.ID          `json:"stream_id"`
	Programmes []models.Programme `json:"programmes"`
	Now        *models.Programme  `json:"now,omitempty"`
}

// ChannelGuide fetches up to limit listings of a live stream and decodes
// them. Now is the programme airing at now, or the first listing.
func ChannelGuide(ctx context.Context, src EPGSource, streamID models.ID, limit int, now time.Time) (*Guide, error) {
	listings, err := src.ShortEPG(ctx, streamID, limit)
	if err != nil {
		return nil, err
	}
	g := &Guide{StreamID: streamID, Programmes: xtream.Programmes(listings, time.UTC)}
	if p, ok := xtream.NowPlaying(g.Programmes, now); ok {
		g.Now = &p
	}
	return g, nil
}
