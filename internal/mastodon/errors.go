package mastodon

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingSource is returned for a feed query with neither account nor tag.
var ErrMissingSource = errors.New(`either "account" or "tag" parameter is required`)

// ErrorKind classifies why fetching statuses failed.
type ErrorKind string

const (
	KindTransport       ErrorKind = "transport"
	KindHTTPStatus      ErrorKind = "http_status"
	KindInvalidJSON     ErrorKind = "invalid_json"
	KindInvalidResponse ErrorKind = "invalid_response"
)

// FetchError is returned by Client.Statuses.
type FetchError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindTransport:
		return "Failed to fetch data from the Mastodon API."
	case KindHTTPStatus:
		return fmt.Sprintf("Mastodon API returned HTTP status %d. Please check your instance URL and account ID.", e.StatusCode)
	case KindInvalidJSON:
		return "Failed to parse the JSON data returned from the Mastodon API."
	case KindInvalidResponse:
		return "Mastodon API returned invalid data format."
	default:
		return "Mastodon API request failed."
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// LookupCode is the machine-readable reason an account lookup failed.
type LookupCode string

const (
	CodeInvalidHandle     LookupCode = "invalid_handle"
	CodeInvalidDomain     LookupCode = "invalid_domain"
	CodeDomainNotFound    LookupCode = "domain_not_found"
	CodeConnectionTimeout LookupCode = "connection_timeout"
	CodeSSLError          LookupCode = "ssl_error"
	CodeRequestFailed     LookupCode = "api_request_failed"
	CodeAccountNotFound   LookupCode = "account_not_found"
	CodeAccessDenied      LookupCode = "access_denied"
	CodeServerError       LookupCode = "server_error"
	CodeRateLimited       LookupCode = "rate_limited"
	CodeAPIError          LookupCode = "api_error"
	CodeJSONParseError    LookupCode = "json_parse_error"
)

// LookupError is returned by Client.LookupAccount. Status is the HTTP status
// a REST caller should answer with.
type LookupError struct {
	Code    LookupCode
	Message string
	Status  int
	Err     error
}

func (e *LookupError) Error() string {
	return e.Message
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

func lookupStatusError(status int) *LookupError {
	switch {
	case status == http.StatusNotFound:
		return &LookupError{
			Code:    CodeAccountNotFound,
			Message: "Account not found. Please check the username and try again.",
			Status:  http.StatusNotFound,
		}
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return &LookupError{
			Code:    CodeAccessDenied,
			Message: "Access denied by the instance. The account may be private or the instance may have restrictions.",
			Status:  status,
		}
	case status >= 500 && status <= 599:
		return &LookupError{
			Code:    CodeServerError,
			Message: "Instance server error. The Mastodon instance may be experiencing technical difficulties. Please try again later.",
			Status:  status,
		}
	case status == http.StatusTooManyRequests:
		return &LookupError{
			Code:    CodeRateLimited,
			Message: "Rate limit exceeded. Please wait a few minutes before trying again.",
			Status:  http.StatusTooManyRequests,
		}
	default:
		return &LookupError{
			Code:    CodeAPIError,
			Message: fmt.Sprintf("Mastodon API returned HTTP status %d. Please verify the instance domain is correct.", status),
			Status:  status,
		}
	}
}
