package service

import (
	"encoding/json"
	"time"

	"github.com/wricardo/tout-va-bien/game/engine"
)

// SessionInfo provides information about a play session
type SessionInfo struct {
	ID             string           `json:"id"`
	LevelID        string           `json:"level_id"`
	CreateMode     bool             `json:"create_mode"`
	CreatedAt      time.Time        `json:"created_at"`
	LastAccessedAt time.Time        `json:"last_accessed_at"`
	Snapshot       *engine.Snapshot `json:"snapshot"`
	Level          *engine.Level    `json:"level"`
	Notification   *Notification    `json:"notification,omitempty"`
}

// DragStartRequest identifies the card picked up by the player
type DragStartRequest struct {
	CardID       string `json:"card_id"`
	SourceCellID string `json:"source_cell_id,omitempty"`
}

// DropRequest is a drag-end as sent by clients. Target is the raw droppable
// identifier ("cell-2" or "cell-2-left"); TargetCellID and TargetPosition
// take precedence when set.
type DropRequest struct {
	CardID         string `json:"card_id"`
	SourceCellID   string `json:"source_cell_id,omitempty"`
	Target         string `json:"target,omitempty"`
	TargetCellID   string `json:"target_cell_id,omitempty"`
	TargetPosition string `json:"target_position,omitempty"`
}

// Command turns the request into an engine command
func (r DropRequest) Command() engine.Command {
	cmd := engine.Command{
		CardID:         r.CardID,
		SourceCellID:   r.SourceCellID,
		TargetCellID:   r.TargetCellID,
		TargetPosition: r.TargetPosition,
	}
	if cmd.TargetCellID == "" && r.Target != "" {
		cmd.TargetCellID, cmd.TargetPosition = engine.SplitDropTarget(r.Target)
		if r.TargetPosition != "" {
			cmd.TargetPosition = r.TargetPosition
		}
	}
	return cmd
}

// DropResponse is returned after a drop
type DropResponse struct {
	*engine.DropResult
	HasChanges bool `json:"has_changes"`
}

// Notification is a transient message shown to the player
type Notification struct {
	Type      string    `json:"type"` // "success" or "error"
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Active reports whether the notification should still be displayed
func (n *Notification) Active(now time.Time) bool {
	return n != nil && now.Before(n.ExpiresAt)
}

// SubmitResult is returned after a created level was sent for publication
type SubmitResult struct {
	Success      bool          `json:"success"`
	LevelID      string        `json:"level_id"`
	Level        *engine.Level `json:"level"`
	Notification *Notification `json:"notification"`
}

// RefreshResult reports a community level refresh
type RefreshResult struct {
	Fetched int    `json:"fetched"`
	Merged  int    `json:"merged"`
	Total   int    `json:"total"`
	Error   string `json:"error,omitempty"`
}

// LevelInfo summarizes a level of the catalog
type LevelInfo struct {
	Index         int    `json:"index,omitempty"` // 1-based navigation index; 0 for create mode
	ID            string `json:"id"`
	ShortTitle    string `json:"short_title"`
	Title         string `json:"title"`
	Cells         int    `json:"cells"`
	Characters    int    `json:"characters"`
	Locations     int    `json:"locations"`
	VictoryStates int    `json:"victory_states"`
	Community     bool   `json:"community"`
	UserCreated   bool   `json:"user_created"`
}

// NewLevelInfo summarizes a level
func NewLevelInfo(index int, level *engine.Level, community bool) *LevelInfo {
	return &LevelInfo{
		Index:         index,
		ID:            level.ID,
		ShortTitle:    level.ShortTitle,
		Title:         level.Title,
		Cells:         level.Cells,
		Characters:    len(level.CharacterDeck),
		Locations:     len(level.LocationDeck),
		VictoryStates: len(level.VictoryStates),
		Community:     community,
		UserCreated:   level.IsUserCreated,
	}
}

// PublishedLevel is a level document received by the publishing API. The
// document is kept verbatim.
type PublishedLevel struct {
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}
