package core

// error_messages.go maps technical errors to user-facing messages with codes
// for support reference. Users quote the code; support staff find the
// technical error in the logs by request id.
//
// Errors are matched by kind first (errors.Is against the package
// sentinels) and then by message pattern for errors that cross a process
// boundary as text.
//
// # Record Errors
//
//	IDX001 - Record index out of range            (dataset.ErrIndex)          422
//	PAY001 - Record payload could not be decoded  (dataset.ErrPayloadDecode)  422
//
// # Query Errors
//
//	QRY001 - Filter query is not valid            (query.ErrQuerySyntax)      400
//
// # Dataset Errors
//
//	DS001 - Report references an unknown dataset  (report.ErrUnknownDataset)  400
//	DS002 - Mapping uses the reserved idx column  (dataset.ErrReservedColumn) 422
//	DS003 - Mapping does not declare a field      (dataset.ErrUnknownField)   400
//
// # Metric Errors
//
//	MET001 - A metric or chart failed             (report.ErrMetricExecution) 422
//	MET002 - Unknown metric                       (report.ErrUnknownMetric)   400
//	CHT001 - Unknown chart type                   (report.ErrUnknownChart)    400
//
// # File Errors
//
//	FILE001 - File too large                      (tabular.ErrFileTooLarge)   413
//	FILE002 - File not found                      (ErrFileNotFound)           404
//	FILE003 - Unsupported file type               (ErrUnsupportedFile)        415
//	FILE004 - Empty or unreadable CSV             (tabular.ErrEmptyFile)      422
//
// # Request Errors
//
//	REQ001 - Malformed request                    (ErrInvalidRequest)         400
//	TBL001 - Dataset not registered               (tabular.ErrTableNotFound)  404
//	TBL002 - Invalid dataset name                 (tabular.ErrInvalidTableName) 400
//	RATE001 - Too many requests                   ("rate limit")              429
//	BUSY001 - Too many reports in progress        (ErrTooManyReports)         503
//
// # Default Errors
//
//	ERR001 - Request timed out                    (context.DeadlineExceeded)  504
//	ERR000 - Anything else                                                    500

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/dataquality/internal/dataset"
	"github.com/JonMunkholm/dataquality/internal/query"
	"github.com/JonMunkholm/dataquality/internal/report"
	"github.com/JonMunkholm/dataquality/internal/tabular"
)

// UserMessage represents a user-friendly error message with actionable guidance.
type UserMessage struct {
	Message string // What went wrong (user-friendly)
	Action  string // What the user should do
	Code    string // Error code for support reference
	Status  int    // HTTP status for the error
}

type errorKind struct {
	target error
	msg    UserMessage
}

// errorKinds is checked in order, so more specific kinds come first. A
// *report.MetricError wrapping dataset.ErrIndex reports MET001, not IDX001.
var errorKinds = []errorKind{
	{report.ErrMetricExecution, UserMessage{
		Message: "A metric or chart could not be computed",
		Action:  "Check the field mapping and the column's values",
		Code:    "MET001",
		Status:  http.StatusUnprocessableEntity,
	}},
	{report.ErrUnknownDataset, UserMessage{
		Message: "The report references a dataset that was not provided",
		Action:  "Create the dataset before requesting a report",
		Code:    "DS001",
		Status:  http.StatusBadRequest,
	}},
	{report.ErrUnknownMetric, UserMessage{
		Message: "The report plan names an unknown metric",
		Action:  "Check the metric names in the report plan",
		Code:    "MET002",
		Status:  http.StatusBadRequest,
	}},
	{report.ErrUnknownChart, UserMessage{
		Message: "The report plan names an unknown chart type",
		Action:  "Use categorical_bar_chart or continuous_bar_chart",
		Code:    "CHT001",
		Status:  http.StatusBadRequest,
	}},
	{query.ErrQuerySyntax, UserMessage{
		Message: "The filter query is not valid",
		Action:  "Use comparisons joined by AND / OR, e.g. age > 30 AND sex == \"F\"",
		Code:    "QRY001",
		Status:  http.StatusBadRequest,
	}},
	{dataset.ErrIndex, UserMessage{
		Message: "Record index is out of range",
		Action:  "Pick an index between 0 and the number of rows minus one",
		Code:    "IDX001",
		Status:  http.StatusUnprocessableEntity,
	}},
	{dataset.ErrPayloadDecode, UserMessage{
		Message: "The record's waveform or image could not be read",
		Action:  "Check that model_input points to a WFDB record or an image under the data folder",
		Code:    "PAY001",
		Status:  http.StatusUnprocessableEntity,
	}},
	{dataset.ErrReservedColumn, UserMessage{
		Message: "The mapping uses the reserved field name idx",
		Action:  "Rename the idx field in the mapping",
		Code:    "DS002",
		Status:  http.StatusUnprocessableEntity,
	}},
	{dataset.ErrUnknownField, UserMessage{
		Message: "The mapping does not declare this field",
		Action:  "Add the field to the mapping",
		Code:    "DS003",
		Status:  http.StatusBadRequest,
	}},
	{tabular.ErrFileTooLarge, UserMessage{
		Message: "File exceeds maximum size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
		Status:  http.StatusRequestEntityTooLarge,
	}},
	{ErrFileNotFound, UserMessage{
		Message: "File not found",
		Action:  "Check the file name against the file list",
		Code:    "FILE002",
		Status:  http.StatusNotFound,
	}},
	{ErrUnsupportedFile, UserMessage{
		Message: "Unsupported file type",
		Action:  "Only CSV files can be read",
		Code:    "FILE003",
		Status:  http.StatusUnsupportedMediaType,
	}},
	{tabular.ErrEmptyFile, UserMessage{
		Message: "The CSV file is empty",
		Action:  "Use a CSV file with a header row",
		Code:    "FILE004",
		Status:  http.StatusUnprocessableEntity,
	}},
	{ErrInvalidRequest, UserMessage{
		Message: "The request is malformed",
		Action:  "Check the request body against the API documentation",
		Code:    "REQ001",
		Status:  http.StatusBadRequest,
	}},
	{tabular.ErrTableNotFound, UserMessage{
		Message: "Dataset has not been created",
		Action:  "Create the dataset first",
		Code:    "TBL001",
		Status:  http.StatusNotFound,
	}},
	{tabular.ErrInvalidTableName, UserMessage{
		Message: "Dataset name is not valid",
		Action:  "Use letters, digits, dots, dashes and underscores only",
		Code:    "TBL002",
		Status:  http.StatusBadRequest,
	}},
	{ErrTooManyReports, UserMessage{
		Message: "Too many reports in progress",
		Action:  "Please wait a moment and try again",
		Code:    "BUSY001",
		Status:  http.StatusServiceUnavailable,
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller dataset or try again later",
		Code:    "ERR001",
		Status:  http.StatusGatewayTimeout,
	}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns match errors by message text, case-insensitively.
var errorPatterns = []errorPattern{
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
			Status:  http.StatusTooManyRequests,
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
			Status:  http.StatusRequestEntityTooLarge,
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
// Support staff should check application logs for the original technical
// error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
	Status:  http.StatusInternalServerError,
}

// MapError converts a technical error to a user-friendly message.
// Known error kinds are matched first, then message patterns
// (case-insensitive). If nothing matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	_, err := query.Filter(rows, query.Translate("age >"))
//	msg := MapError(err)
//	// msg.Code == "QRY001"
//	// msg.Status == 400
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether an error maps to a specific message rather
// than the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. The technical error stays
// reachable through Unwrap. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
