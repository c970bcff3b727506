package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/chatmode"
	"github.com/starford/ansuz/internal/registry"
)

// Handler holds API route handlers.
type Handler struct {
	svc *registry.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *registry.Service) *Handler {
	return &Handler{svc: svc}
}

// modePath extracts the mode identifier from the URL (everything after
// /api/modes/). Supports encoded slashes from OpenAPI clients
// (e.g. team%2Fplan.chatmode.md).
func modePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListModes handles GET /api/modes.
//
//	@Summary		List chatmodes with optional pagination and filtering
//	@Tags			modes
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tool	query		string	false	"Filter by tool"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated_at, name, path)
//	@Success		200		{object}	ModeListResponse
//	@Security		BearerAuth
//	@Router			/modes [get]
func (h *Handler) ListModes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	tool := q.Get("tool")
	sort := q.Get("sort")

	items, total, err := h.svc.List(r.Context(), limit, offset, tool, sort)
	if err != nil {
		slog.Error("list modes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"modes": items,
		"total": total,
	})
}

// GetMode handles GET /api/modes/*.
//
//	@Summary		Get a single chatmode by name or path
//	@Tags			modes
//	@Produce		json
//	@Param			path	path		string	true	"Mode name or path"
//	@Success		200		{object}	ModeDetail
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/modes/{path} [get]
func (h *Handler) GetMode(w http.ResponseWriter, r *http.Request) {
	path := modePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	mode, err := h.svc.Get(r.Context(), path)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case chatmode.IsFormatError(err):
			writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
		default:
			slog.Error("get mode failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, mode)
}

// CreateMode handles POST /api/modes.
//
//	@Summary		Create a new chatmode
//	@Tags			modes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateModeRequest	true	"Mode to create"
//	@Success		201		{object}	ModeDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/modes [post]
func (h *Handler) CreateMode(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and content are required"))
		return
	}
	if !strings.HasSuffix(req.Path, chatmode.Suffix) {
		writeJSON(w, http.StatusBadRequest, errorBody("path must end with "+chatmode.Suffix))
		return
	}
	mode, err := h.svc.Create(r.Context(), req.Path, []byte(req.Content))
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrAlreadyExists):
			writeJSON(w, http.StatusConflict, errorBody("mode already exists"))
		case chatmode.IsFormatError(err):
			writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
		default:
			slog.Error("create mode failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, mode)
}

// UpdateMode handles PUT /api/modes/*.
//
//	@Summary		Update a chatmode with optimistic concurrency
//	@Tags			modes
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string				true	"Mode path"
//	@Param			If-Match	header	string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	UpdateModeRequest	true	"Updated content"
//	@Success		200		{object}	ModeDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/modes/{path} [put]
func (h *Handler) UpdateMode(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	path := modePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	ifMatch := r.Header.Get("If-Match")
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch = strings.Trim(ifMatch, `"`)

	mode, err := h.svc.Update(r.Context(), registry.ResolvePath(path), []byte(req.Content), ifMatch)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
		case chatmode.IsFormatError(err):
			writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
		default:
			slog.Error("update mode failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, mode)
}

// DeleteMode handles DELETE /api/modes/*.
//
//	@Summary		Delete a chatmode
//	@Tags			modes
//	@Param			path	path	string	true	"Mode name or path"
//	@Success		204		"Mode deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/modes/{path} [delete]
func (h *Handler) DeleteMode(w http.ResponseWriter, r *http.Request) {
	path := modePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.Delete(r.Context(), path); err != nil {
		slog.Error("delete mode failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across chatmodes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// Tools handles GET /api/tools.
//
//	@Summary		List every tool referenced by a chatmode with usage counts
//	@Tags			tools
//	@Produce		json
//	@Success		200	{object}	ToolsResponse
//	@Security		BearerAuth
//	@Router			/tools [get]
func (h *Handler) Tools(w http.ResponseWriter, r *http.Request) {
	tools, err := h.svc.Tools(r.Context())
	if err != nil {
		slog.Error("tools failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tools": tools,
	})
}

// ModesForTool handles GET /api/tools/{tool}/modes.
//
//	@Summary		List the chatmodes that grant a given tool
//	@Tags			tools
//	@Produce		json
//	@Param			tool	path		string	true	"Tool name"
//	@Success		200		{object}	map[string][]string
//	@Security		BearerAuth
//	@Router			/tools/{tool}/modes [get]
func (h *Handler) ModesForTool(w http.ResponseWriter, r *http.Request) {
	tool := chi.URLParam(r, "tool")
	modes, err := h.svc.ModesForTool(r.Context(), tool)
	if err != nil {
		slog.Error("modes for tool failed", slog.String("tool", tool), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if modes == nil {
		modes = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tool":  tool,
		"modes": modes,
	})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the modes↔tools graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.svc.Graph(r.Context())
	if err != nil {
		slog.Error("graph failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": nodes,
		"links": links,
	})
}
