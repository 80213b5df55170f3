package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wricardo/tout-va-bien/game/engine"
)

// CommunityLevelPrefix starts the id of every level created by players
const CommunityLevelPrefix = "community_create_"

// NewCommunityLevelID returns a fresh id for a created level
func NewCommunityLevelID() string {
	return CommunityLevelPrefix + uuid.NewString()
}

// ValidPublishedID reports whether id can name a stored level document
func ValidPublishedID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

// NewPublishedLevel wraps a received document. Any JSON value is accepted.
// The id comes from the document when it carries a usable one, otherwise
// a fresh one is generated.
func NewPublishedLevel(doc []byte, now time.Time) (*PublishedLevel, error) {
	var decoded any
	if err := json.Unmarshal(doc, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decode level document: %v", ErrInvalidArgument, err)
	}

	id := ""
	if obj, ok := decoded.(map[string]any); ok {
		if s, ok := obj["id"].(string); ok {
			id = strings.TrimSpace(s)
		}
	}
	if !ValidPublishedID(id) {
		id = NewCommunityLevelID()
	}

	return &PublishedLevel{
		ID:        id,
		Data:      append(json.RawMessage(nil), doc...),
		CreatedAt: now.UTC(),
	}, nil
}

// localPublisher serves the publishing API from the local level store
type localPublisher struct {
	store LevelStore
	now   func() time.Time
}

// NewLocalPublisher returns a Publisher backed by a level store, used when
// no remote publishing API is configured
func NewLocalPublisher(store LevelStore) Publisher {
	return &localPublisher{store: store, now: time.Now}
}

// FetchLevels decodes every stored document that is a valid level
func (p *localPublisher) FetchLevels(ctx context.Context) ([]*engine.Level, error) {
	records, err := p.store.List(ctx)
	if err != nil {
		return nil, err
	}

	levels := make([]*engine.Level, 0, len(records))
	for _, record := range records {
		level, err := engine.ParseLevel(record.Data)
		if err != nil {
			log.Debug().Err(err).Str("id", record.ID).Msg("stored document is not a playable level")
			continue
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// SubmitLevel stores the level document
func (p *localPublisher) SubmitLevel(ctx context.Context, level *engine.Level) error {
	data, err := json.Marshal(level)
	if err != nil {
		return fmt.Errorf("marshal level: %w", err)
	}

	record, err := NewPublishedLevel(data, p.now())
	if err != nil {
		return err
	}
	if err := p.store.Put(ctx, record); err != nil {
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	return nil
}
