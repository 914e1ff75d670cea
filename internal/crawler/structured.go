package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sjsage522/soldlistings/internal/listing"
	"sjsage522/soldlistings/logger"
	apperrors "sjsage522/soldlistings/pkg/errors"

	"github.com/go-resty/resty/v2"
)

const (
	structuredName = "structured"

	// MaxStructuredPageSize is the largest page the search API serves
	MaxStructuredPageSize = 100
)

// findingEnvelope is the JSON envelope of a completed-items search.
// Every field arrives wrapped in a single-element array.
type findingEnvelope struct {
	Response []findingResponse `json:"findCompletedItemsResponse"`
}

type findingResponse struct {
	Ack          []string `json:"ack"`
	ErrorMessage []struct {
		Error []struct {
			Message []string `json:"message"`
		} `json:"error"`
	} `json:"errorMessage"`
	SearchResult []struct {
		Count string                   `json:"@count"`
		Item  []listing.StructuredItem `json:"item"`
	} `json:"searchResult"`
}

// errorMessage returns the first upstream error message, if any
func (r findingResponse) errorMessage() string {
	for _, em := range r.ErrorMessage {
		for _, e := range em.Error {
			if msg := firstString(e.Message); msg != "" {
				return msg
			}
		}
	}
	return ""
}

// StructuredStrategy acquires items from the structured search API
type StructuredStrategy struct {
	client   *resty.Client
	endpoint string
	appID    string
	pageSize int
}

// NewStructuredStrategy creates a new structured strategy
func NewStructuredStrategy(endpoint, appID string, pageSize int, timeout time.Duration) *StructuredStrategy {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")

	return &StructuredStrategy{
		client:   client,
		endpoint: endpoint,
		appID:    appID,
		pageSize: pageSize,
	}
}

// GetName returns the strategy name
func (s *StructuredStrategy) GetName() string {
	return structuredName
}

// Acquire issues one completed-items search and returns its items
func (s *StructuredStrategy) Acquire(ctx context.Context, query Query) ([]listing.RawItem, error) {
	log := logger.ForStrategy(structuredName)

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"OPERATION-NAME":                 "findCompletedItems",
			"SERVICE-VERSION":                "1.0.0",
			"SECURITY-APPNAME":               s.appID,
			"RESPONSE-DATA-FORMAT":           "JSON",
			"REST-PAYLOAD":                   "",
			"keywords":                       query.Keywords,
			"paginationInput.entriesPerPage": strconv.Itoa(s.entriesPerPage(query)),
			"itemFilter(0).name":             "SoldItemsOnly",
			"itemFilter(0).value":            "true",
			"sortOrder":                      "EndTimeSoonest",
		}).
		Get(s.endpoint)
	if err != nil {
		return nil, apperrors.NewTransport(structuredName, "request failed", err)
	}
	if resp.IsError() {
		return nil, apperrors.NewTransport(structuredName, fmt.Sprintf("unexpected status code: %d", resp.StatusCode()), nil)
	}

	var envelope findingEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, apperrors.NewTransport(structuredName, "unparsable response body", err)
	}

	if len(envelope.Response) == 0 {
		return nil, apperrors.NewUpstreamRejected(structuredName, "response envelope missing", nil)
	}
	result := envelope.Response[0]

	ack := firstString(result.Ack)
	if ack != "Success" {
		message := fmt.Sprintf("ack %q", ack)
		if upstream := result.errorMessage(); upstream != "" {
			message = fmt.Sprintf("%s: %s", message, upstream)
		}
		return nil, apperrors.NewUpstreamRejected(structuredName, message, nil)
	}

	var items []listing.RawItem
	for _, sr := range result.SearchResult {
		for _, it := range sr.Item {
			items = append(items, it)
		}
	}

	log.Info().Str("ack", ack).Int("items", len(items)).Msg("Search completed")
	return items, nil
}

func (s *StructuredStrategy) entriesPerPage(query Query) int {
	size := query.PageSize
	if size <= 0 {
		size = s.pageSize
	}
	if size <= 0 || size > MaxStructuredPageSize {
		size = MaxStructuredPageSize
	}
	return size
}

func firstString(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
