package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"sjsage522/soldlistings/internal/crawler"
	"sjsage522/soldlistings/internal/listing"
	"sjsage522/soldlistings/logger"
	apperrors "sjsage522/soldlistings/pkg/errors"
	"sjsage522/soldlistings/services/gallery"
	"sjsage522/soldlistings/services/ingest"
	"sjsage522/soldlistings/services/store"

	"github.com/gorilla/mux"
)

const (
	credentialHeader = "X-Cron-Secret"
	credentialParam  = "secret"

	noSnapshotMessage = "No listings data available yet. Run the scraper first."
)

// Ingester runs one ingestion
type Ingester interface {
	Run(ctx context.Context, query crawler.Query, credential string) (*ingest.Result, error)
}

// SnapshotReader reads the current snapshot
type SnapshotReader interface {
	Get(ctx context.Context, key string) (*listing.Snapshot, error)
}

// GalleryLister lists a page of gallery images
type GalleryLister interface {
	List(ctx context.Context, page, pageSize int) (*gallery.Page, error)
}

// Handler serves the trigger, read and gallery endpoints
type Handler struct {
	ingester    Ingester
	snapshots   SnapshotReader
	gallery     GalleryLister
	query       crawler.Query
	snapshotKey string
}

// NewHandler creates a new handler. gallery may be nil when no media store is configured.
func NewHandler(ingester Ingester, snapshots SnapshotReader, galleryLister GalleryLister, query crawler.Query, snapshotKey string) *Handler {
	return &Handler{
		ingester:    ingester,
		snapshots:   snapshots,
		gallery:     galleryLister,
		query:       query,
		snapshotKey: snapshotKey,
	}
}

// Router builds the HTTP routes
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger)
	// mux middleware only wraps matched routes
	r.MethodNotAllowedHandler = requestLogger(http.HandlerFunc(methodNotAllowed))
	r.NotFoundHandler = requestLogger(http.HandlerFunc(notFound))

	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/scrape-ebay", h.handleTrigger).Methods(http.MethodGet)

	r.Handle("/api/listings", cors(http.HandlerFunc(h.handleListings))).Methods(http.MethodGet, http.MethodOptions)
	r.Handle("/api/gallery", cors(http.HandlerFunc(h.handleGallery))).Methods(http.MethodGet, http.MethodOptions)

	return r
}

type triggerResponse struct {
	Success         bool      `json:"success"`
	ListingsScraped int       `json:"listingsScraped"`
	LastUpdated     time.Time `json:"lastUpdated"`
	SnapshotURL     string    `json:"snapshotUrl"`
	RunID           string    `json:"runId"`
	Strategy        string    `json:"strategy"`
}

type listingsResponse struct {
	Success       bool              `json:"success"`
	LastUpdated   *time.Time        `json:"lastUpdated"`
	TotalListings int               `json:"totalListings"`
	Listings      []listing.Listing `json:"listings"`
	Message       string            `json:"message,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Message   string `json:"message,omitempty"`
	Retryable *bool  `json:"retryable,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleTrigger(w http.ResponseWriter, r *http.Request) {
	credential := r.Header.Get(credentialHeader)
	if credential == "" {
		credential = r.URL.Query().Get(credentialParam)
	}

	result, err := h.ingester.Run(r.Context(), h.query, credential)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeUnauthorized) {
			logger.ForHTTP().Warn().Str("remote", r.RemoteAddr).Msg("Rejected trigger with bad credential")
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
			return
		}
		retryable := apperrors.IsRetryable(err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:     "Failed to scrape eBay listings",
			Kind:      string(apperrors.KindOf(err)),
			Message:   err.Error(),
			Retryable: &retryable,
		})
		return
	}

	writeJSON(w, http.StatusOK, triggerResponse{
		Success:         true,
		ListingsScraped: result.ListingsScraped,
		LastUpdated:     result.LastUpdated,
		SnapshotURL:     result.Location,
		RunID:           result.RunID,
		Strategy:        result.Strategy,
	})
}

func (h *Handler) handleListings(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.snapshots.Get(r.Context(), h.snapshotKey)
	if errors.Is(err, store.ErrNoSnapshot) {
		writeJSON(w, http.StatusOK, listingsResponse{
			Success:  true,
			Listings: []listing.Listing{},
			Message:  noSnapshotMessage,
		})
		return
	}
	if err != nil {
		logger.ForHTTP().Error().Err(err).Msg("Failed to read snapshot")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Failed to fetch listings",
			Message: err.Error(),
		})
		return
	}

	lastUpdated := snapshot.LastUpdated
	writeJSON(w, http.StatusOK, listingsResponse{
		Success:       true,
		LastUpdated:   &lastUpdated,
		TotalListings: snapshot.TotalListings,
		Listings:      snapshot.Listings,
	})
}

func (h *Handler) handleGallery(w http.ResponseWriter, r *http.Request) {
	if h.gallery == nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch images"})
		return
	}

	page := intParam(r, "page", gallery.DefaultPage)
	pageSize := intParam(r, "pageSize", gallery.DefaultPageSize)

	result, err := h.gallery.List(r.Context(), page, pageSize)
	if err != nil {
		logger.ForHTTP().Error().Err(err).Msg("Failed to list gallery images")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch images"})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// intParam returns a positive integer query parameter, or def when missing or invalid
func intParam(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 1 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.ForHTTP().Error().Err(err).Msg("Failed to write response")
	}
}
