package mastodon

import (
	"encoding/json"
	"fmt"
)

// ParseStatuses decodes a statuses response body. Bodies that are not JSON
// fail with KindInvalidJSON; JSON that is not an array of statuses fails
// with KindInvalidResponse.
func ParseStatuses(body []byte) ([]Status, error) {
	if !json.Valid(body) {
		return nil, &FetchError{Kind: KindInvalidJSON, Err: fmt.Errorf("response is not valid JSON")}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &FetchError{Kind: KindInvalidResponse, Err: fmt.Errorf("response is not an array: %w", err)}
	}

	statuses := make([]Status, 0, len(raw))
	for i, item := range raw {
		var status Status
		if err := json.Unmarshal(item, &status); err != nil {
			return nil, &FetchError{Kind: KindInvalidResponse, Err: fmt.Errorf("decoding status %d: %w", i, err)}
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}
