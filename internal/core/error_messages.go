package core

// error_messages.go maps technical errors to user-facing messages with a
// support code.
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Reserved column: a mapping targets the "id" column
//	IMP002 - Column type not allowed: createType outside the allow-list
//	IMP003 - Invalid column name: the new column name has no usable characters
//	IMP004 - Schema unavailable: the leads table could not be read
//	IMP005 - Import busy: another import holds the slot
//	IMP006 - Invalid request: columnsMap or rows missing or malformed
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key
//	DB002 - Foreign key violation
//	DB003 - Connection refused
//	DB004 - Connection reset
//	DB005 - Timeout
//	DB006 - Deadlock
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - Unsupported spreadsheet format
//	FILE003 - Unreadable spreadsheet
//	FILE004 - No file provided
//	FILE005 - Empty spreadsheet
//
// # Lead Errors (LEAD001-LEAD099)
//
//	LEAD001 - Lead not found
//	LEAD002 - Invalid lead id
//
// Patterns are matched case-insensitively with strings.Contains; the first
// match wins, so specific patterns come before general ones. ERR000 is the
// fallback; check the logs for the technical error.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// Import Errors (IMP001-IMP006)
	// =========================================================================
	{
		pattern: ErrReservedColumn.Error(),
		msg: UserMessage{
			Message: `The "id" column cannot be created or imported into`,
			Action:  "Map that header to another column or skip it",
			Code:    "IMP001",
		},
	},
	{
		pattern: ErrDisallowedType.Error(),
		msg: UserMessage{
			Message: "Column type not allowed",
			Action:  "Use VARCHAR(255), TEXT, DATE, DATETIME, INT or DECIMAL(10,2)",
			Code:    "IMP002",
		},
	},
	{
		pattern: ErrInvalidColumnName.Error(),
		msg: UserMessage{
			Message: "The new column name is not valid",
			Action:  "Use letters, digits and underscores, up to 63 characters",
			Code:    "IMP003",
		},
	},
	{
		pattern: ErrSchemaRetrieval.Error(),
		msg: UserMessage{
			Message: "Could not read the leads table",
			Action:  "Please try again in a few moments",
			Code:    "IMP004",
		},
	},
	{
		pattern: "too many imports",
		msg: UserMessage{
			Message: "Another import is in progress",
			Action:  "Please wait a moment and try again",
			Code:    "IMP005",
		},
	},
	{
		pattern: ErrInvalidRequest.Error(),
		msg: UserMessage{
			Message: "The import request is incomplete",
			Action:  "Send columnsMap and rows as arrays",
			Code:    "IMP006",
		},
	},

	// =========================================================================
	// Database Errors (DB001-DB006)
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A lead with this value already exists",
			Action:  "Review the file for duplicate emails",
			Code:    "DB001",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Create the referenced record first",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB004",
		},
	},
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "Import timed out",
			Action:  "Split the file into smaller imports",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Split the file into smaller imports",
			Code:    "DB005",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB006",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE005)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported spreadsheet",
		msg: UserMessage{
			Message: "Unsupported file type",
			Action:  "Upload an .xlsx or .csv file",
			Code:    "FILE002",
		},
	},
	{
		pattern: "unreadable spreadsheet",
		msg: UserMessage{
			Message: "The file could not be read",
			Action:  "Re-save the file as .xlsx or UTF-8 .csv",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Select a spreadsheet to import",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty spreadsheet",
		msg: UserMessage{
			Message: "The spreadsheet has no header row",
			Action:  "Put column names in the first row",
			Code:    "FILE005",
		},
	},

	// =========================================================================
	// Lead Errors (LEAD001-LEAD002)
	// =========================================================================
	{
		pattern: ErrLeadNotFound.Error(),
		msg: UserMessage{
			Message: "Lead not found",
			Action:  "Refresh the list; the lead may have been deleted",
			Code:    "LEAD001",
		},
	},
	{
		pattern: ErrInvalidLeadID.Error(),
		msg: UserMessage{
			Message: "Invalid lead id",
			Action:  "Use the numeric id shown in the leads list",
			Code:    "LEAD002",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Unknown
// errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, strings.ToLower(ep.pattern)) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
