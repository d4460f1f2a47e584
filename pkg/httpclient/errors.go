package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// upstreamErrorBody covers the error shapes the storefront API is known to
// return: a top-level message, a structured error object, or a bare error
// string.
type upstreamErrorBody struct {
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

type structuredError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an AppError. Messages that mention stock are classified as
// OUT_OF_STOCK and keep the upstream wording verbatim.
//
// The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	code, message := decodeErrorBody(bodyBytes)
	if message == "" {
		message = strings.TrimSpace(string(bodyBytes))
	}
	return mapUpstreamError(resp.StatusCode, code, message, serviceName)
}

func decodeErrorBody(body []byte) (code, message string) {
	var parsed upstreamErrorBody
	if json.Unmarshal(body, &parsed) != nil {
		return "", ""
	}
	message = parsed.Message

	if len(parsed.Error) == 0 {
		return "", message
	}
	var structured structuredError
	if json.Unmarshal(parsed.Error, &structured) == nil {
		if message == "" {
			message = structured.Message
		}
		return structured.Code, message
	}
	var plain string
	if json.Unmarshal(parsed.Error, &plain) == nil && message == "" {
		message = plain
	}
	return "", message
}

// IsStockMessage reports whether an upstream message is about stock levels.
func IsStockMessage(message string) bool {
	return strings.Contains(strings.ToLower(message), "stock")
}

func mapUpstreamError(status int, code, message, serviceName string) error {
	if code == apperrors.CodeOutOfStock || IsStockMessage(message) {
		return apperrors.OutOfStock(message)
	}

	qualifiedMsg := fmt.Sprintf("%s: %s", serviceName, message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(serviceName, "resource")
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(qualifiedMsg)
	case status == http.StatusConflict:
		return apperrors.Conflict(qualifiedMsg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.Unauthorized(qualifiedMsg)
	case status == http.StatusServiceUnavailable:
		return apperrors.Unavailable(qualifiedMsg, nil)
	default:
		if code == "" {
			code = apperrors.CodeUpstreamFailed
		}
		return &apperrors.AppError{
			Code:    code,
			Message: qualifiedMsg,
			Status:  http.StatusBadGateway,
			Err:     fmt.Errorf("%s returned status %d", serviceName, status),
		}
	}
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
