package errors

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// ErrorHandler provides interface-specific error handling
type ErrorHandler interface {
	HandleError(err error) error
	FormatError(err error) string
}

// CLIErrorHandler handles errors for the CLI interface
type CLIErrorHandler struct {
	Verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler(verbose bool) *CLIErrorHandler {
	return &CLIErrorHandler{
		Verbose: verbose,
	}
}

// HandleError handles errors for CLI interface
func (h *CLIErrorHandler) HandleError(err error) error {
	appErr := GetAppError(err)

	if h.Verbose {
		log.Printf("[%s] %s: %s", appErr.Severity, appErr.Code, appErr.Error())
		if appErr.Cause != nil {
			log.Printf("Caused by: %v", appErr.Cause)
		}
	}

	return fmt.Errorf("%s", h.FormatError(appErr))
}

// FormatError formats an error for CLI display
func (h *CLIErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)

	switch appErr.Severity {
	case SeverityCritical:
		return fmt.Sprintf("CRITICAL: %s", appErr.Message)
	case SeverityError:
		return fmt.Sprintf("ERROR: %s", appErr.Message)
	case SeverityWarning:
		return fmt.Sprintf("WARNING: %s", appErr.Message)
	case SeverityInfo:
		return fmt.Sprintf("INFO: %s", appErr.Message)
	default:
		return appErr.Message
	}
}

// HTTPErrorHandler handles errors for the HTTP interface
type HTTPErrorHandler struct {
	IncludeDetails bool
}

// NewHTTPErrorHandler creates a new HTTP error handler
func NewHTTPErrorHandler(includeDetails bool) *HTTPErrorHandler {
	return &HTTPErrorHandler{
		IncludeDetails: includeDetails,
	}
}

// HandleError handles errors for HTTP interface
func (h *HTTPErrorHandler) HandleError(err error) error {
	appErr := GetAppError(err)

	log.Printf("[HTTP] [%s] %s: %s", appErr.Severity, appErr.Code, appErr.Error())
	if appErr.Cause != nil {
		log.Printf("Caused by: %v", appErr.Cause)
	}

	return appErr
}

// FormatError formats an error for an HTTP response body
func (h *HTTPErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)

	inner := map[string]interface{}{
		"code":      appErr.Code,
		"message":   appErr.Message,
		"timestamp": appErr.Timestamp,
	}
	if h.IncludeDetails && appErr.Details != "" {
		inner["details"] = appErr.Details
	}

	jsonBytes, _ := json.Marshal(map[string]interface{}{"error": inner})
	return string(jsonBytes)
}

// WriteHTTPError writes an error response to HTTP
func (h *HTTPErrorHandler) WriteHTTPError(w http.ResponseWriter, err error) {
	appErr := GetAppError(err)

	h.HandleError(appErr)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(h.getHTTPStatusCode(appErr))
	w.Write([]byte(h.FormatError(appErr)))
}

// getHTTPStatusCode maps error codes to HTTP status codes
func (h *HTTPErrorHandler) getHTTPStatusCode(appErr *AppError) int {
	switch appErr.Code {
	case ErrCodeValidation, ErrCodeInvalidInput, ErrCodeMissingParameter:
		return http.StatusBadRequest
	case ErrCodeInvalidFormat:
		return http.StatusUnprocessableEntity
	case ErrCodeNotFound, ErrCodeFileNotFound, ErrCodeCommandNotFound:
		return http.StatusNotFound
	case ErrCodeAlreadyExists:
		return http.StatusConflict
	case ErrCodeInvalidCommand:
		return http.StatusMethodNotAllowed
	case ErrCodeStorageFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
