package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Auth errors
// 12000-12999: Problem errors
// 13000-13999: Submission & Judge errors
// 14000-14999: Contest & Session errors
// 15000-15999: Client-side transport & local storage errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	Forbidden           ErrorCode = 10005
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Auth Errors (11000-11999) ==========

	InvalidCredentials ErrorCode = 11000
	UserNotFound       ErrorCode = 11001
	TokenExpired       ErrorCode = 11003
	TokenInvalid       ErrorCode = 11004
	UsernameExists     ErrorCode = 11100

	// ========== Problem Errors (12000-12999) ==========

	ProblemNotFound     ErrorCode = 12000
	ProblemAccessDenied ErrorCode = 12001

	// ========== Submission & Judge Errors (13000-13999) ==========

	// Submission (13000-13099)
	SubmissionCreateFailed ErrorCode = 13001
	CodeTooLarge           ErrorCode = 13002
	LanguageNotSupported   ErrorCode = 13003
	SubmitTooFrequently    ErrorCode = 13004

	// Judge (13100-13199)
	JudgeSystemError ErrorCode = 13101

	// Custom test (13200-13299)
	CustomTestFailed    ErrorCode = 13200
	CustomInputTooLarge ErrorCode = 13201

	// ========== Contest & Session Errors (14000-14999) ==========

	// Contest basic (14000-14099)
	ContestNotFound     ErrorCode = 14000
	ContestNotStarted   ErrorCode = 14001
	ContestEnded        ErrorCode = 14002
	ContestAccessDenied ErrorCode = 14003

	// Registration (14100-14199)
	RegistrationClosed ErrorCode = 14100
	AlreadyRegistered  ErrorCode = 14101

	// Solving session (14300-14399)
	SessionNotActive     ErrorCode = 14300
	ProblemIndexOutRange ErrorCode = 14301
	EditorFailed         ErrorCode = 14302

	// ========== Client Transport & Storage Errors (15000-15999) ==========

	NetworkError      ErrorCode = 15000
	MalformedResponse ErrorCode = 15001
	DraftStoreError   ErrorCode = 15100
	DraftNotFound     ErrorCode = 15101
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized access",
	Forbidden:           "Access forbidden",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	// Auth
	InvalidCredentials: "Invalid username or password",
	UserNotFound:       "User not found",
	TokenExpired:       "Token has expired",
	TokenInvalid:       "Invalid token",
	UsernameExists:     "Username already exists",

	// Problem
	ProblemNotFound:     "Problem not found",
	ProblemAccessDenied: "Access to this problem is denied",

	// Submission
	SubmissionCreateFailed: "Failed to create submission",
	CodeTooLarge:           "Code is too large",
	LanguageNotSupported:   "Programming language not supported",
	SubmitTooFrequently:    "Submitting too frequently, please wait",

	// Judge
	JudgeSystemError: "Judge system error",

	// Custom test
	CustomTestFailed:    "Custom test execution failed",
	CustomInputTooLarge: "Custom input is too large",

	// Contest
	ContestNotFound:     "Contest not found",
	ContestNotStarted:   "Contest has not started yet",
	ContestEnded:        "Contest has ended",
	ContestAccessDenied: "You are not a participant of this contest",

	// Registration
	RegistrationClosed: "Registration is closed",
	AlreadyRegistered:  "Already registered for this contest",

	// Session
	SessionNotActive:     "Contest session is not active",
	ProblemIndexOutRange: "Problem index out of range",
	EditorFailed:         "Editor exited with an error",

	// Client
	NetworkError:      "Network request failed",
	MalformedResponse: "Unexpected response from server",
	DraftStoreError:   "Draft storage failed",
	DraftNotFound:     "No saved draft",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == InvalidCredentials, c == Unauthorized, c == TokenExpired, c == TokenInvalid:
		return 401
	case c == Forbidden, c == ContestAccessDenied, c == ProblemAccessDenied:
		return 403
	case c == NotFound, c == UserNotFound, c == ProblemNotFound, c == ContestNotFound:
		return 404
	case c == UsernameExists, c == AlreadyRegistered:
		return 409
	case c == TooManyRequests, c == SubmitTooFrequently:
		return 429
	case c == ServiceUnavailable:
		return 503
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams, c == LanguageNotSupported, c == CodeTooLarge, c == CustomInputTooLarge:
		return 400
	case c == ContestEnded, c == ContestNotStarted, c == RegistrationClosed:
		return 400
	default:
		return 500
	}
}

// FromHTTPStatus picks a generic code for a non-2xx response that carried no envelope.
func FromHTTPStatus(status int) ErrorCode {
	switch status {
	case 400:
		return InvalidParams
	case 401:
		return Unauthorized
	case 403:
		return Forbidden
	case 404:
		return NotFound
	case 408, 504:
		return Timeout
	case 429:
		return TooManyRequests
	case 502, 503:
		return ServiceUnavailable
	default:
		return InternalServerError
	}
}
