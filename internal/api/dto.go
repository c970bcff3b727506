package api

import (
	"github.com/starford/ansuz/internal/catalog"
	"github.com/starford/ansuz/internal/registry"
)

// CreateModeRequest is the request body for creating a chatmode.
type CreateModeRequest struct {
	Path    string `json:"path" example:"plan.chatmode.md" validate:"required"`
	Content string `json:"content" example:"---\ndescription: Planning mode\n---\nPlan first." validate:"required"`
}

// UpdateModeRequest is the request body for updating a chatmode.
type UpdateModeRequest struct {
	Content string `json:"content" validate:"required"`
}

// ModeDetail is the full mode response type (aliased from the domain layer).
type ModeDetail = registry.ModeDetail

// ModeListItem is a lightweight item in a list response (aliased from the domain layer).
type ModeListItem = registry.ModeListItem

// ModeListResponse wraps paginated mode listings.
type ModeListResponse struct {
	Modes []ModeListItem `json:"modes" validate:"required"`
	Total int            `json:"total" example:"12" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []catalog.SearchResult `json:"results" validate:"required"`
}

// ToolsResponse wraps the tool usage listing.
type ToolsResponse struct {
	Tools []catalog.ToolUsage `json:"tools" validate:"required"`
}

// GraphResponse wraps the modes↔tools graph.
type GraphResponse struct {
	Nodes []catalog.GraphNode `json:"nodes" validate:"required"`
	Links []catalog.GraphLink `json:"links" validate:"required"`
}
