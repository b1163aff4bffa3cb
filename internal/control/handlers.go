// internal/control/handlers.go
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jdharms/termynal/internal/engine"
	"github.com/jdharms/termynal/internal/player"
)

const maxBodySize = 1 << 20

type contextKey string

const playerKey contextKey = "player"

// LatestInstance addresses the most recently registered player
const LatestInstance = "latest"

// instanceCtx resolves {id} to a registered player
func (s *Server) instanceCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var p *player.Player
		var ok bool
		if id == LatestInstance {
			p, ok = s.registry.Latest()
		} else {
			p, ok = s.registry.Get(id)
		}
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("instance %s not found", id))
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), playerKey, p)))
	})
}

func playerFrom(ctx context.Context) *player.Player {
	return ctx.Value(playerKey).(*player.Player)
}

// handleStats handles GET /stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Stats())
}

// handleList handles GET /instances
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	players := s.registry.List()
	statuses := make([]player.Status, 0, len(players))
	for _, p := range players {
		statuses = append(statuses, p.Status())
	}
	writeJSON(w, http.StatusOK, statuses)
}

// handleGet handles GET /instances/{id}
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, playerFrom(r.Context()).Status())
}

// handleAction handles POST /instances/{id}/{action}
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	p := playerFrom(r.Context())
	cmd := Command{Command: chi.URLParam(r, "action")}

	if raw := r.URL.Query().Get("index"); raw != "" {
		index, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "index must be an integer")
			return
		}
		cmd.Index = &index
	}

	if err := apply(p, cmd); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrUnknownCommand) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}

	s.logger.WithField("instance", p.InstanceID()).WithField("command", cmd.Command).Info("Command applied over REST")
	writeJSON(w, http.StatusOK, p.Status())
}

// handleGetLines handles GET /instances/{id}/lines
func (s *Server) handleGetLines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, playerFrom(r.Context()).Lines())
}

// handleAddLines handles POST /instances/{id}/lines
func (s *Server) handleAddLines(w http.ResponseWriter, r *http.Request) {
	p := playerFrom(r.Context())

	var req AddLinesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Lines) == 0 {
		writeError(w, http.StatusBadRequest, "lines are required")
		return
	}

	index := -1
	if req.Index != nil {
		index = *req.Index
	}
	p.AddLines(req.Lines, index)

	writeJSON(w, http.StatusCreated, p.Lines())
}

// handlePatchLine handles PATCH /instances/{id}/lines/{index}
func (s *Server) handlePatchLine(w http.ResponseWriter, r *http.Request) {
	p := playerFrom(r.Context())

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	ok, err := p.PatchLine(index, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("line %d not found", index))
		return
	}

	writeJSON(w, http.StatusOK, p.Lines()[index])
}

// handleDeleteLine handles DELETE /instances/{id}/lines/{index}
func (s *Server) handleDeleteLine(w http.ResponseWriter, r *http.Request) {
	p := playerFrom(r.Context())

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}

	if !p.RemoveLine(index) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("line %d not found", index))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleSetTiming handles PUT /instances/{id}/timing
func (s *Server) handleSetTiming(w http.ResponseWriter, r *http.Request) {
	p := playerFrom(r.Context())

	var patch engine.TimingPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	for _, v := range []*int{patch.StartDelay, patch.TypeDelay, patch.LineDelay} {
		if v != nil && *v < 0 {
			writeError(w, http.StatusBadRequest, "timing values must not be negative")
			return
		}
	}

	p.SetTiming(patch)
	writeJSON(w, http.StatusOK, p.Timing())
}

// handleUpdateConfig handles PUT /instances/{id}/config
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	p := playerFrom(r.Context())

	var req ConfigUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	var value any
	if len(req.Value) > 0 {
		if err := json.Unmarshal(req.Value, &value); err != nil {
			writeError(w, http.StatusBadRequest, "invalid value: "+err.Error())
			return
		}
	}

	if err := p.UpdateConfig(req.Key, value); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, p.Config())
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
