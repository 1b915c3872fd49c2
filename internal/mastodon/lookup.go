package mastodon

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/pders01/mastofeed/internal/validation"
)

type lookupResponse struct {
	ID          json.RawMessage `json:"id"`
	Username    string          `json:"username"`
	Acct        string          `json:"acct"`
	DisplayName string          `json:"display_name"`
	URL         string          `json:"url"`
}

// LookupAccount resolves a [@]username@domain handle to the account's id on
// its home instance.
func (c *Client) LookupAccount(ctx context.Context, handle string) (*AccountInfo, error) {
	parsed, err := validation.ParseHandle(handle)
	if err != nil {
		if errors.Is(err, validation.ErrInvalidDomain) {
			return nil, &LookupError{
				Code:    CodeInvalidDomain,
				Message: "Invalid instance domain. Please include the full domain (e.g., mastodon.social)",
				Status:  http.StatusBadRequest,
				Err:     err,
			}
		}
		return nil, &LookupError{
			Code:    CodeInvalidHandle,
			Message: "Invalid handle format. Please use: username@instance.domain",
			Status:  http.StatusBadRequest,
			Err:     err,
		}
	}

	instance := validation.SanitizeInstance(parsed.Domain)
	acct := parsed.Acct()
	lookupURL := fmt.Sprintf("%s://%s/api/v1/accounts/lookup?acct=%s", c.scheme, instance, url.QueryEscape(acct))

	resp, err := c.get(ctx, lookupURL)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, lookupStatusError(resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, classifyTransportError(err)
	}

	var data lookupResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &LookupError{
			Code:    CodeJSONParseError,
			Message: "Failed to parse API response.",
			Status:  http.StatusInternalServerError,
			Err:     err,
		}
	}

	id := rawID(data.ID)
	if id == "" {
		return nil, &LookupError{
			Code:    CodeAccountNotFound,
			Message: "No account found with that handle. Make sure the handle is correct and the instance is accessible.",
			Status:  http.StatusNotFound,
		}
	}

	info := &AccountInfo{
		Instance:    instance,
		AccountID:   id,
		DisplayName: data.DisplayName,
		Acct:        data.Acct,
		Username:    data.Username,
		URL:         data.URL,
	}
	if info.DisplayName == "" {
		info.DisplayName = parsed.Username
	}
	if info.Acct == "" {
		info.Acct = acct
	}
	if info.Username == "" {
		info.Username = parsed.Username
	}
	return info, nil
}

// rawID accepts ids encoded as strings (Mastodon) or numbers (some forks).
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil && n.String() != "0" {
		return n.String()
	}
	return ""
}

func classifyTransportError(err error) *LookupError {
	switch {
	case isDNSError(err):
		return &LookupError{
			Code:    CodeDomainNotFound,
			Message: "Could not connect to instance domain. Please verify the domain exists and is spelled correctly.",
			Status:  http.StatusInternalServerError,
			Err:     err,
		}
	case isTimeout(err):
		return &LookupError{
			Code:    CodeConnectionTimeout,
			Message: "Connection timed out. The instance may be temporarily unreachable or slow to respond.",
			Status:  http.StatusInternalServerError,
			Err:     err,
		}
	case isTLSError(err):
		return &LookupError{
			Code:    CodeSSLError,
			Message: "SSL certificate error. The instance may have an invalid or expired security certificate.",
			Status:  http.StatusInternalServerError,
			Err:     err,
		}
	default:
		return &LookupError{
			Code:    CodeRequestFailed,
			Message: fmt.Sprintf("Failed to lookup account: %v", err),
			Status:  http.StatusInternalServerError,
			Err:     err,
		}
	}
}

func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "Could not resolve host") ||
		strings.Contains(msg, "Name or service not known")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "timed out") || strings.Contains(msg, "timeout")
}

func isTLSError(err error) bool {
	var (
		certErr     *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		unknownAuth x509.UnknownAuthorityError
		hostnameErr x509.HostnameError
		invalidCert x509.CertificateInvalidError
	)
	if errors.As(err, &certErr) || errors.As(err, &recordErr) || errors.As(err, &unknownAuth) ||
		errors.As(err, &hostnameErr) || errors.As(err, &invalidCert) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "tls:") || strings.Contains(msg, "x509:") ||
		strings.Contains(msg, "SSL") || strings.Contains(msg, "certificate")
}
