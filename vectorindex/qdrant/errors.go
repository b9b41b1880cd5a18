package qdrant

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrURLRequired is returned when no Qdrant URL is configured.
var ErrURLRequired = errors.New("qdrant url required")

// apiError is a non-2xx response.
type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("qdrant: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

func newAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Status struct {
			Error string `json:"error"`
		} `json:"status"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &body) == nil && body.Status.Error != "" {
		msg = body.Status.Error
	}
	return &apiError{StatusCode: resp.StatusCode, Message: msg}
}

func asAPIError(err error) (*apiError, bool) {
	var apiErr *apiError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

func isNotFound(err error) bool {
	apiErr, ok := asAPIError(err)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

func isConflict(err error) bool {
	apiErr, ok := asAPIError(err)
	return ok && (apiErr.StatusCode == http.StatusConflict || strings.Contains(strings.ToLower(apiErr.Message), "already exists"))
}

func isAlreadyExists(err error) bool {
	apiErr, ok := asAPIError(err)
	return ok && strings.Contains(strings.ToLower(apiErr.Message), "already exists")
}

// isIndexRequired matches Qdrant's rejection of a filter on an unindexed field.
func isIndexRequired(err error) bool {
	apiErr, ok := asAPIError(err)
	return ok && apiErr.StatusCode == http.StatusBadRequest && strings.Contains(apiErr.Message, "Index required")
}

func isMissingCollection(err error) bool {
	if isNotFound(err) {
		return true
	}
	apiErr, ok := asAPIError(err)
	if !ok {
		return false
	}
	return strings.Contains(apiErr.Message, "Not found: Collection") || strings.Contains(apiErr.Message, "doesn't exist")
}
