package shared

import (
	"encoding/json"
	"net/http"
)

const (
	ContentTypeHeader = "Content-Type"
	ApplicationJSON   = "application/json; charset=utf-8"

	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

type (
	// Envelope is the body of every JSON response.
	Envelope struct {
		Status    string `json:"status"`
		Results   *int   `json:"results,omitempty"`
		Message   string `json:"message,omitempty"`
		Data      any    `json:"data,omitempty"`
		Error     string `json:"error,omitempty"`
		RequestID string `json:"requestId,omitempty"`
	}

	// DataBody nests a document or a list under "data" inside the envelope.
	DataBody struct {
		Data any `json:"data"`
	}
)

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set(ContentTypeHeader, ApplicationJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteData(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Envelope{Status: StatusSuccess, Data: DataBody{Data: data}})
}

// WriteList adds the number of returned documents as "results".
func WriteList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}

	results := len(items)

	WriteJSON(w, http.StatusOK, Envelope{Status: StatusSuccess, Results: &results, Data: DataBody{Data: items}})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
