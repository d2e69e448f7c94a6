// Package handlers implements the mock index server's HTTP endpoints.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/3leaps/ftpfinder/internal/server/state"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// MessageResponse is the body of endpoints that only acknowledge.
type MessageResponse struct {
	Message string `json:"message"`
}

// API serves the index endpoints over a Store and an Indexer.
type API struct {
	store   *state.Store
	indexer *state.Indexer
	logger  *zap.Logger
}

// NewAPI returns handlers backed by store and indexer.
func NewAPI(store *state.Store, indexer *state.Indexer, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{store: store, indexer: indexer, logger: logger}
}

// Register mounts every endpoint on r.
func (a *API) Register(r chi.Router) {
	r.Get("/", a.Root)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/status", a.AuthStatus)
		r.Post("/setup", a.Setup)
		r.Post("/login", a.Login)
	})

	r.Get("/sources", a.ListSources)
	r.Post("/sources", a.CreateSource)
	r.Delete("/sources/{id}", a.DeleteSource)

	r.Post("/index", a.TriggerIndex)
	r.Get("/index/status", a.IndexStatus)

	r.Get("/stats", a.Stats)
	r.Get("/search", a.Search)
}

// Root answers with a running banner.
func (a *API) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "FTP Finder Backend is running"})
}

// AuthStatus reports whether an admin password exists.
func (a *API) AuthStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"configured": a.store.Configured()})
}

type passwordRequest struct {
	Password string `json:"password"`
}

// Setup stores the first admin password.
func (a *API) Setup(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := a.store.SetPassword(req.Password); err != nil {
		respondWithError(w, r, err)
		return
	}
	a.logger.Info("Admin password configured")
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password set successfully"})
}

// Login checks the admin password.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := a.store.CheckPassword(req.Password); err != nil {
		respondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ListSources returns every source in id order.
func (a *API) ListSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.store.Sources())
}

type sourceRequest struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// CreateSource adds a source and returns it.
func (a *API) CreateSource(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	src, err := a.store.AddSource(req.Label, req.URL)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	a.logger.Info("Source added", zap.Int64("id", src.ID), zap.String("label", src.Label))
	writeJSON(w, http.StatusOK, src)
}

// DeleteSource removes a source and its directories. Deleting an unknown
// id succeeds.
func (a *API) DeleteSource(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondWithError(w, r, invalid("id must be an integer"))
		return
	}
	if a.store.DeleteSource(id) {
		a.logger.Info("Source deleted", zap.Int64("id", id))
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Source deleted"})
}

// TriggerIndex starts a crawl in the background.
func (a *API) TriggerIndex(w http.ResponseWriter, r *http.Request) {
	if !a.indexer.Start() {
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Indexing already in progress"})
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Indexing started in background"})
}

// IndexStatus returns the crawl's progress.
func (a *API) IndexStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.store.Job())
}

// Stats returns index counts.
func (a *API) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.store.Stats())
}

// Search matches directory names against the q parameter.
func (a *API) Search(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.store.Search(r.URL.Query().Get("q")))
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return badRequest("request body is required")
		}
		return badRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
