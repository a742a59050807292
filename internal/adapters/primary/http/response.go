package http

import (
	"encoding/json"
	"net/http"
)

// SuccessResponse is the envelope for single-object responses.
type SuccessResponse struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// ListResponse is the envelope for unbounded collections.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

// PaginatedResponse is the envelope for windowed collections.
type PaginatedResponse[T any] struct {
	Data       []T                `json:"data"`
	Pagination PaginationMetadata `json:"pagination"`
}

// PaginationMetadata echoes the requested window back to the client.
type PaginationMetadata struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// WriteJSON encodes v with the given status. Encoding failures after the
// header is sent cannot be reported to the client, so they are dropped.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes data inside the standard success envelope.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, SuccessResponse{Data: data})
}

// WriteCreated writes the created resource with a 201.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, data)
}

// WriteNoContent responds 204 with an empty body.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteList writes an unbounded collection with its count.
func WriteList[T any](w http.ResponseWriter, data []T) {
	WriteJSON(w, http.StatusOK, ListResponse[T]{Data: data, Count: len(data)})
}

// WritePaginatedSimple writes one page of results without a total count.
// Callers fetch limit+1 rows; an extra row means another page exists and
// is trimmed before writing.
func WritePaginatedSimple[T any](w http.ResponseWriter, data []T, limit, offset int) {
	hasMore := len(data) > limit
	if hasMore {
		data = data[:limit]
	}

	WriteJSON(w, http.StatusOK, PaginatedResponse[T]{
		Data: data,
		Pagination: PaginationMetadata{
			Limit:   limit,
			Offset:  offset,
			HasMore: hasMore,
		},
	})
}
