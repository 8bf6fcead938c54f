package prometheus

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/golang/gddo/httputil"
	"github.com/pkg/errors"
)

const (
	contentTypePlainText = "text/plain"
	contentTypeJSON      = "application/json"
)

// generatedResponse is the body of a health response.
type generatedResponse struct {
	// Err is a protocol error, if any.
	Err string `json:"error"`
	// Data is the response output, a bytes.Buffer for plain text.
	Data interface{} `json:"data"`
}

// negotiateContentType parses the Accept header and returns the preferred content type.
func negotiateContentType(r *http.Request) string {
	return httputil.NegotiateContentType(r, []string{contentTypePlainText, contentTypeJSON}, contentTypePlainText)
}

// writeResponse writes the response in the negotiated content type.
func writeResponse(w http.ResponseWriter, r *http.Request, response generatedResponse) error {
	switch negotiateContentType(r) {
	case contentTypePlainText:
		buf, ok := response.Data.(bytes.Buffer)
		if !ok {
			return errors.Errorf("unexpected data: %v", response.Data)
		}
		if _, err := w.Write(buf.Bytes()); err != nil {
			return errors.Wrap(err, "could not write response body")
		}
	case contentTypeJSON:
		w.Header().Set("Content-Type", contentTypeJSON)
		if err := json.NewEncoder(w).Encode(response); err != nil {
			return errors.Wrap(err, "could not encode response body")
		}
	}
	return nil
}
