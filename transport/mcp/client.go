package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/tout-va-bien/game/engine"
	"github.com/wricardo/tout-va-bien/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Tout va bien",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Tout va bien ! - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Place location cards on the board cells and characters on the locations so
that the board matches one of the level's solutions.

AVAILABLE TOOLS:
- create_session: Start a level (number, level id, or "create")
- board_state: Show the board and how close it is to a solution
- drop_card: Drop a card on a cell, a named position, or off the board
- remove_card: Take a card out of a cell
- reset_board: Back to the initial board
- check_victory: Evaluate the board
- apply_victory: Show a solution on the board
- list_levels / get_level: Browse levels and their decks
- submit_level: In create mode, publish the board as a new level
- refresh_levels: Load community levels
- list_sessions / get_session: Session management
- game_instructions: Full rules`),
	)

	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new session on a level",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"level": map[string]interface{}{
					"type":        "string",
					"description": "Level number (1-based), level id, or \"create\" for create mode (default: 1)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Board operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "board_state",
		Description: "Get the current board with the victory diagnostics",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleBoardState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "drag_start",
		Description: "Pick up a card and see what it is and what its cell holds",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"card_id": map[string]interface{}{
					"type":        "string",
					"description": "Card to pick up",
				},
				"source_cell_id": map[string]interface{}{
					"type":        "string",
					"description": "Cell the card is taken from (omit for the deck)",
				},
			},
			Required: []string{"session_id", "card_id"},
		},
	}, c.handleDragStart)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "drop_card",
		Description: "Drag a card (from the deck or from a cell) and drop it on a target. Omit target to drop the card off the board.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"card_id": map[string]interface{}{
					"type":        "string",
					"description": "Card to move",
				},
				"source_cell_id": map[string]interface{}{
					"type":        "string",
					"description": "Cell the card is dragged from (omit when taking it from the deck)",
				},
				"target": map[string]interface{}{
					"type":        "string",
					"description": "Drop target: a cell (cell-2) or a named position of the location in that cell (cell-2-left)",
				},
			},
			Required: []string{"session_id", "card_id"},
		},
	}, c.handleDropCard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "remove_card",
		Description: "Remove a card from a cell. Removing a location empties the cell.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"cell_id": map[string]interface{}{
					"type":        "string",
					"description": "Cell holding the card",
				},
				"card_id": map[string]interface{}{
					"type":        "string",
					"description": "Card to remove",
				},
			},
			Required: []string{"session_id", "cell_id", "card_id"},
		},
	}, c.handleRemoveCard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_board",
		Description: "Reset the board to its initial state",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "check_victory",
		Description: "Evaluate the board against the level's solutions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleCheckVictory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "apply_victory",
		Description: "Replace the board with one of the level's solutions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"index": map[string]interface{}{
					"type":        "number",
					"description": "0-based solution index (default: 0)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleApplyVictory)

	// Levels
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_levels",
		Description: "List the playable levels",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListLevels)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_level",
		Description: "Show a level's decks: the characters and locations available",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"level": map[string]interface{}{
					"type":        "string",
					"description": "Level number or level id",
				},
			},
			Required: []string{"level"},
		},
	}, c.handleGetLevel)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "submit_level",
		Description: "Publish the board of a create-mode session as a new community level",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Title of the new level",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleSubmitLevel)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "refresh_levels",
		Description: "Fetch community levels from the publishing API",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleRefreshLevels)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the game rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]string{}
	if level := stringArg(args, "level"); level != "" {
		body["level"] = level
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\n\n%s", session.ID, formatSessionInfo(&session))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		result += fmt.Sprintf("- %s (Level: %s, Created: %s)\n",
			s.ID, s.LevelID, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleBoardState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var snapshot engine.Snapshot
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/board"), nil, &snapshot); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSnapshot(&snapshot)), nil
}

func (c *Client) handleDragStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	body := service.DragStartRequest{
		CardID:       stringArg(args, "card_id"),
		SourceCellID: stringArg(args, "source_cell_id"),
	}

	var card engine.ActiveCard
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/drag-start"), body, &card); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Holding %s %s (%s)", card.Kind, card.ID, card.Label)
	if card.CellData != nil {
		result += "\nCell: " + engine.DescribeCell(*card.CellData, true)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleDropCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	body := service.DropRequest{
		CardID:       stringArg(args, "card_id"),
		SourceCellID: stringArg(args, "source_cell_id"),
		Target:       stringArg(args, "target"),
	}

	var result service.DropResponse
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/drop"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatDropResult(&result)), nil
}

func (c *Client) handleRemoveCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	body := map[string]string{
		"cell_id": stringArg(args, "cell_id"),
		"card_id": stringArg(args, "card_id"),
	}

	var snapshot engine.Snapshot
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/remove"), body, &snapshot); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSnapshot(&snapshot)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var response struct {
		Message  string           `json:"message"`
		Snapshot *engine.Snapshot `json:"snapshot"`
	}

	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatSnapshot(response.Snapshot))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleCheckVictory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var victory engine.VictoryResult
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/victory"), nil, &victory); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatVictory(&victory)), nil
}

func (c *Client) handleApplyVictory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	index := 0
	if v, ok := args["index"].(float64); ok {
		index = int(v)
	}

	var snapshot engine.Snapshot
	path := sessionPath(sessionID, fmt.Sprintf("/apply-victory/%d", index))
	if err := c.apiCall(ctx, "POST", path, nil, &snapshot); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSnapshot(&snapshot)), nil
}

func (c *Client) handleListLevels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var levels []service.LevelInfo
	if err := c.apiCall(ctx, "GET", "/api/levels", nil, &levels); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Levels:\n\n")
	for _, level := range levels {
		selector := fmt.Sprintf("%d", level.Index)
		if level.Index == 0 {
			selector = engine.CreateSelector
		}
		tag := ""
		if level.Community {
			tag = " [community]"
		}
		b.WriteString(fmt.Sprintf("• %s: %s%s\n  id=%s cells=%d characters=%d locations=%d solutions=%d\n",
			selector, level.Title, tag, level.ID, level.Cells, level.Characters, level.Locations, level.VictoryStates))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetLevel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	selector := stringArg(arguments(request), "level")

	var level engine.Level
	if err := c.apiCall(ctx, "GET", "/api/levels/"+url.PathEscape(selector), nil, &level); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatLevel(&level)), nil
}

func (c *Client) handleSubmitLevel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	body := map[string]string{"title": stringArg(args, "title")}

	var result service.SubmitResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/submit"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	message := ""
	if result.Notification != nil {
		message = result.Notification.Message
	}
	if !result.Success {
		return mcp.NewToolResultError(message), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s\nLevel id: %s", message, result.LevelID)), nil
}

func (c *Client) handleRefreshLevels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var result service.RefreshResult
	if err := c.apiCall(ctx, "POST", "/api/levels/community/refresh", nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if result.Error != "" {
		return mcp.NewToolResultError(fmt.Sprintf("Community levels unavailable: %s", result.Error)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Fetched %d community levels, %d new. %d community levels available.",
		result.Fetched, result.Merged, result.Total)), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Tout va bien ! - Instructions

GAME OBJECTIVE:
Each level tells a small story. Arrange the cards on the board so it
matches one of the level's solutions.

THE BOARD:
• Cells are named cell-1, cell-2, ... and laid out three per row
• A cell holds at most one location card
• Characters only go on a cell that already holds a location

CARDS:
• Locations have a capacity (maximum number of characters)
• Some locations have named positions (for example left / right); a
  character dropped there must target a position: "cell-2-left"
• Every card appears at most once on the board

DROPPING CARDS (drop_card):
• Location from the deck onto a cell: replaces the cell's location, the
  characters stay when they fit
• Location from a cell onto another cell: moves with its characters; a
  location already in the target goes back to the source cell, empty
• Character onto a location: joins it; a character moved from another cell
  leaves that cell
• A full location without positions is emptied before the character joins
• A character dropped on an occupied position replaces the occupant
• Character dropped on an empty cell or off the board (no target): it goes
  back to the deck

VICTORY:
• Every cell of a solution must hold the same location and exactly the
  same characters, on the same positions for locations with positions
• Cells not mentioned by the solution are ignored
• board_state and check_victory report, for the first solution, which
  cells have the right location and which have at least one right
  character

CREATE MODE:
• create_session with level "create" opens an empty board with every card
• Build a board and call submit_level with a title to publish it

STRATEGY:
1. get_level to read the decks and their capacities
2. Place the locations first, then the characters
3. Use check_victory diagnostics to find the cells that are still wrong
4. remove_card or reset_board to undo

SESSION MANAGEMENT:
- Multiple sessions can run simultaneously
- Each session has a unique 4-character ID
- Sessions expire after a period of inactivity`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Session: %s\nLevel: %s\nCreated: %s\n",
		session.ID, session.LevelID, session.CreatedAt.Format("2006-01-02 15:04:05")))
	if session.CreateMode {
		b.WriteString("Mode: create\n")
	}
	if session.Notification != nil {
		b.WriteString(fmt.Sprintf("Notification (%s): %s\n", session.Notification.Type, session.Notification.Message))
	}
	if session.Level != nil {
		b.WriteString("\n")
		b.WriteString(formatLevel(session.Level))
	}
	b.WriteString("\n")
	b.WriteString(formatSnapshot(session.Snapshot))
	return b.String()
}

func formatSnapshot(snapshot *engine.Snapshot) string {
	if snapshot == nil {
		return "No board available"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Level: %s | Moves: %d", snapshot.LevelID, snapshot.Moves))
	if snapshot.HasChanges {
		b.WriteString(" | modified")
	}
	b.WriteString("\n\n")

	for _, row := range engine.RenderBoard(snapshot.Board, len(snapshot.Cells)) {
		b.WriteString(row)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(formatVictory(&snapshot.Victory))
	return b.String()
}

func formatVictory(victory *engine.VictoryResult) string {
	if victory.Achieved {
		return fmt.Sprintf("🎉 VICTORY! (solution %d)", victory.MatchedIndex+1)
	}
	if len(victory.Diagnostics) == 0 {
		return "Not solved yet"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Not solved yet (%d errors)\n", victory.ErrorCount))
	for _, d := range victory.Diagnostics {
		b.WriteString(fmt.Sprintf("- %s: location %s, characters %s\n",
			d.CellID, mark(d.LocationMatches), mark(d.AnyCharacterMatches)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func formatDropResult(result *service.DropResponse) string {
	if result.DropResult == nil {
		return "No result"
	}

	var b strings.Builder
	if result.Changed {
		b.WriteString("✓ Board updated\n\n")
	} else {
		b.WriteString("✗ Nothing changed\n\n")
	}

	snapshot := &engine.Snapshot{
		Cells:      boardCells(result.Board),
		Board:      result.Board,
		Victory:    result.Victory,
		Moves:      result.Moves,
		HasChanges: result.HasChanges,
	}
	b.WriteString(formatSnapshot(snapshot))
	return b.String()
}

// boardCells lists cell ids up to the highest occupied cell
func boardCells(board engine.BoardState) []string {
	highest := 0
	for id := range board {
		if n, ok := engine.CellIndex(id); ok && n > highest {
			highest = n
		}
	}
	return engine.CellIDs(highest)
}

func formatLevel(level *engine.Level) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s (%s), %d cells\n", level.Title, level.ID, level.Cells))

	b.WriteString("Characters:\n")
	for _, c := range level.CharacterDeck {
		b.WriteString(fmt.Sprintf("  - %s: %s\n", c.ID, c.Label))
	}

	b.WriteString("Locations:\n")
	for _, c := range level.LocationDeck {
		line := fmt.Sprintf("  - %s: %s (max %d", c.ID, c.Label, c.Capacity())
		if c.Slotted() {
			line += ", positions " + strings.Join(c.Slots.Positions, "/")
		}
		b.WriteString(line + ")\n")
	}
	return b.String()
}
