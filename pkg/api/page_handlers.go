package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/platinummonkey/laman/pkg/async"
	"github.com/platinummonkey/laman/pkg/httputil"
	"github.com/platinummonkey/laman/pkg/pages"
)

const exportTimeout = 2 * time.Minute

// generatorIndex handles GET /generate
func (s *Server) generatorIndex(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	usage, err := s.subscriptions.Usage(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	recent, err := s.pages.ListRecent(r.Context(), userID, pages.DefaultRecentLimit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	summaries := make([]pages.Summary, 0, len(recent))
	for _, page := range recent {
		summaries = append(summaries, page.Summarize())
	}

	httputil.WriteSuccess(w, GeneratorIndexResponse{
		Usage:       usage,
		RecentPages: summaries,
	})
}

// generatePage handles POST /generate
func (s *Server) generatePage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req pages.Request
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	page, err := s.pages.Generate(r.Context(), userID, req)
	if errors.Is(err, pages.ErrGenerationFailed) && page != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":   "Page generation failed. No generation was charged.",
			"page_id": page.ID,
		})
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	httputil.WriteCreated(w, page)
}

// getPage handles GET /pages/{id}
func (s *Server) getPage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	page, err := s.pages.Get(r.Context(), userID, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, page)
}

// previewPage handles GET /pages/{id}/preview and serves the page as a
// standalone HTML document
func (s *Server) previewPage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	page, err := s.pages.Get(r.Context(), userID, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if page.Status != pages.StatusCompleted {
		s.writeServiceError(w, r, pages.ErrPageNotReady)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(page.Document()))
}

// updatePage handles PATCH /pages/{id}
func (s *Server) updatePage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req pages.Request
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	page, err := s.pages.Update(r.Context(), userID, id, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, page)
}

// deletePage handles DELETE /pages/{id}
func (s *Server) deletePage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.pages.Delete(r.Context(), userID, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

// exportPage handles POST /pages/{id}/export. Ownership and readiness are
// checked before responding; the upload itself runs in the background.
func (s *Server) exportPage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if !s.pages.ExportEnabled() {
		s.writeServiceError(w, r, pages.ErrExportDisabled)
		return
	}

	page, err := s.pages.Get(r.Context(), userID, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if page.Status != pages.StatusCompleted {
		s.writeServiceError(w, r, pages.ErrPageNotReady)
		return
	}

	async.SafeGo(r.Context(), s.logger, exportTimeout, "page export", func(ctx context.Context) error {
		_, err := s.pages.Export(ctx, userID, id)
		return err
	})

	httputil.WriteJSON(w, http.StatusAccepted, ExportResponse{
		Export: pages.ExportKeys(userID, id),
		Status: "queued",
	})
}
