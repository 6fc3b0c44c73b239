package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"papertrade/internal/domain"
)

// Response represents a standardized API response
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

// LedgerError is the error body of a failed ledger operation
type LedgerError struct {
	Kind      string `json:"kind"`
	Detail    string `json:"detail"`
	Retryable bool   `json:"retryable"`
}

// SuccessResponse sends a success response
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Status: "success",
		Data:   data,
	})
}

// SuccessMessageResponse sends a success response with a message
func SuccessMessageResponse(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// CreatedResponse sends a 201 Created response
func CreatedResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{
		Status: "success",
		Data:   data,
	})
}

// ErrorResponse sends an error response
func ErrorResponse(c echo.Context, statusCode int, message string, err interface{}) error {
	return c.JSON(statusCode, Response{
		Status:  "error",
		Message: message,
		Error:   err,
	})
}

// BadRequestResponse sends a 400 Bad Request response
func BadRequestResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusBadRequest, message, nil)
}

// UnauthorizedResponse sends a 401 Unauthorized response
func UnauthorizedResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusUnauthorized, message, nil)
}

// InternalServerErrorResponse sends a 500 Internal Server Error response
func InternalServerErrorResponse(c echo.Context, message string, err error) error {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	return ErrorResponse(c, http.StatusInternalServerError, message, errMsg)
}

// StatusForKind maps an error kind code to its HTTP status
func StatusForKind(kind string) int {
	switch kind {
	case domain.KindInputValidation:
		return http.StatusBadRequest
	case domain.KindUnknownSymbol, domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInsufficientFunds, domain.KindInsufficientShares:
		return http.StatusUnprocessableEntity
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindStoreError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var kindMessages = map[string]string{
	domain.KindInputValidation:    "Invalid input",
	domain.KindUnknownSymbol:      "Invalid symbol",
	domain.KindInsufficientFunds:  "Can't afford",
	domain.KindInsufficientShares: "Too many shares",
	domain.KindNotFound:           "Not found",
	domain.KindConflict:           "Already exists",
	domain.KindStoreError:         "Ledger temporarily unavailable, try again",
	domain.KindDataIntegrity:      "Ledger data integrity violation",
}

// LedgerErrorResponse sends the response for a failed ledger operation
func LedgerErrorResponse(c echo.Context, err error) error {
	kind := domain.ErrorKind(err)
	status := StatusForKind(kind)

	message, ok := kindMessages[kind]
	if !ok {
		message = "Internal server error"
	}
	if status >= http.StatusInternalServerError {
		log.Printf("[ERR] %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	detail := err.Error()
	var storeErr *domain.StoreError
	if errors.As(err, &storeErr) {
		// driver errors stay in the log
		detail = "store error: " + storeErr.Op
	}

	return ErrorResponse(c, status, message, LedgerError{
		Kind:      kind,
		Detail:    detail,
		Retryable: domain.IsRetryable(err),
	})
}
