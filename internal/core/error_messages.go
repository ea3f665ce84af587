// Package core holds the failure taxonomy and operator-facing messages
// shared by every pipeline stage.
//
// # Error Codes Reference
//
// Every stage failure printed to the operator carries a code, so a log line
// or a status line can be quoted back when asking for help.
//
// # Retrieval Errors (RET001-RET099)
//
//	RET001 - Download timeout: the archive never appeared in the download directory
//	         Action: Check the portal is reachable and raise RETRIEVAL_TIMEOUT if needed
//	         Patterns: ErrRetrievalTimeout
//
//	RET002 - Portal unreachable: navigation or an expected page element failed
//	         Action: Verify network access and that the portal layout has not changed
//	         Patterns: "navigate", "element"
//
// # Conversion Errors (CNV001-CNV099)
//
//	CNV001 - Archive unreadable: the downloaded file is not a valid zip
//	         Action: Delete the download and rerun acquire
//	         Patterns: "zip:"
//
//	CNV002 - Region file failed: one or more region files could not be parsed
//	         Action: Inspect the decode report; rerun once the source is fixed
//	         Patterns: KindConversion
//
//	CNV003 - Empty archive: the download holds no region .csv files
//	         Action: Check the portal download and rerun acquire
//	         Patterns: "no .csv region files"
//
// # Publish Errors (PUB001-PUB099)
//
//	PUB001 - Remote unavailable: the shared store refused a delete, upload or rename
//	         Action: Check remote credentials and connectivity, then rerun acquire
//	         Patterns: KindPublish
//
// # Merge Errors (MRG001-MRG099)
//
//	MRG001 - No partitions: the partition directory holds no .parquet files
//	         Action: Run acquire first or point PARTITION_DIR at the staging store
//	         Patterns: ErrMissingInput
//
//	MRG002 - Output not written: reading partitions or writing the dataset failed
//	         Action: Check disk space and permissions on OUTPUT_DIR
//	         Patterns: KindPersist
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - Run in progress: another run holds the lock
//	         Action: Wait for the other run, or remove a stale lock file
//	         Patterns: ErrLockHeld
//
//	RUN002 - Cancelled: the run was interrupted
//	         Action: Rerun the stage from the beginning
//	         Patterns: "context canceled"
//
//	RUN003 - Bad configuration
//	         Action: Fix the listed environment variables
//	         Patterns: KindConfig
//
// # Default Error (ERR000)
//
// Fallback when no kind or pattern matches.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides operator-facing error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a substring to match and its corresponding message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgRetrievalTimeout = UserMessage{
		Message: "The archive download never completed",
		Action:  "Check the portal is reachable and raise RETRIEVAL_TIMEOUT if needed",
		Code:    "RET001",
	}
	msgRetrieval = UserMessage{
		Message: "The source portal could not be used",
		Action:  "Verify network access and that the portal layout has not changed",
		Code:    "RET002",
	}
	msgArchive = UserMessage{
		Message: "The downloaded archive is unreadable",
		Action:  "Delete the download and rerun acquire",
		Code:    "CNV001",
	}
	msgConversion = UserMessage{
		Message: "One or more region files could not be converted",
		Action:  "Inspect the decode report; rerun once the source is fixed",
		Code:    "CNV002",
	}
	msgEmptyArchive = UserMessage{
		Message: "The archive holds no region files",
		Action:  "Check the portal download and rerun acquire",
		Code:    "CNV003",
	}
	msgPublish = UserMessage{
		Message: "The shared store rejected the publish",
		Action:  "Check remote credentials and connectivity, then rerun acquire",
		Code:    "PUB001",
	}
	msgMissingInput = UserMessage{
		Message: "No partitions were found to merge",
		Action:  "Run acquire first or point PARTITION_DIR at the staging store",
		Code:    "MRG001",
	}
	msgPersist = UserMessage{
		Message: "The normalized dataset was not written",
		Action:  "Check disk space and permissions on OUTPUT_DIR",
		Code:    "MRG002",
	}
	msgLock = UserMessage{
		Message: "Another run is in progress",
		Action:  "Wait for the other run, or remove a stale lock file",
		Code:    "RUN001",
	}
	msgCancelled = UserMessage{
		Message: "The run was cancelled",
		Action:  "Rerun the stage from the beginning",
		Code:    "RUN002",
	}
	msgConfig = UserMessage{
		Message: "The configuration is invalid",
		Action:  "Fix the listed environment variables",
		Code:    "RUN003",
	}
)

// errorPatterns refine a kind's default message. First match wins.
var errorPatterns = []errorPattern{
	{pattern: "zip: ", msg: msgArchive},
	{pattern: "no .csv region files", msg: msgEmptyArchive},
	{pattern: "context canceled", msg: msgCancelled},
}

// defaultMessage is returned when nothing else matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the log file for the technical error",
	Code:    "ERR000",
}

// MapError converts a stage error to an operator-facing message.
// Sentinels are checked first, then substring patterns, then the error's Kind.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	switch {
	case errors.Is(err, ErrRetrievalTimeout):
		return msgRetrievalTimeout
	case errors.Is(err, ErrMissingInput):
		return msgMissingInput
	case errors.Is(err, ErrLockHeld):
		return msgLock
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	switch KindOf(err) {
	case KindConfig:
		return msgConfig
	case KindRetrieval:
		return msgRetrieval
	case KindConversion:
		return msgConversion
	case KindPublish:
		return msgPublish
	case KindMissingInput:
		return msgMissingInput
	case KindPersist:
		return msgPersist
	case KindLock:
		return msgLock
	case KindCancelled:
		return msgCancelled
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "[CODE] Message. Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("[%s] %s. %s", msg.Code, msg.Message, msg.Action)
}
