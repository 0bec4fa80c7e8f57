package downstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/nandinigandhi21/EventHive-TheCoders/internal/domain"
)

const maxBodyBytes = 4 << 20

func malformed(format string, args ...any) error {
	return &domain.GatewayError{Kind: domain.GatewayMalformed, Message: fmt.Sprintf(format, args...)}
}

// decodeCollection accepts either a bare JSON array or an {"items": [...]} envelope.
func decodeCollection[T domain.Record](body []byte) (domain.Collection[T], error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return domain.Collection[T]{}, malformed("empty list body")
	}

	var items []T
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &items); err != nil {
			return domain.Collection[T]{}, malformed("list: %v", err)
		}
	case '{':
		var env struct {
			Items *[]T `json:"items"`
		}
		if err := json.Unmarshal(body, &env); err != nil {
			return domain.Collection[T]{}, malformed("list envelope: %v", err)
		}
		if env.Items == nil {
			return domain.Collection[T]{}, malformed("list envelope without items")
		}
		items = *env.Items
	default:
		return domain.Collection[T]{}, malformed("list body is neither array nor object")
	}

	if items == nil {
		items = make([]T, 0)
	}
	for i, it := range items {
		if it.RecordID() == "" {
			return domain.Collection[T]{}, malformed("record %d has no id", i)
		}
		if f, ok := domain.CheckClosedFields(it); !ok {
			return domain.Collection[T]{}, malformed("record %s has unknown %s %q", it.RecordID(), f, it.Field(f))
		}
	}
	return domain.Collection[T]{Items: items}, nil
}

// decodeMutation pulls the confirmed value of field out of a mutation response.
// The value may sit at the top level or inside an "event"/"user"/"data" object.
func decodeMutation(field string, body []byte) (MutationResult, error) {
	res := MutationResult{Field: field}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || field == "" {
		return res, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return res, malformed("mutation body: %v", err)
	}

	raw, ok := top[field]
	if !ok {
		for _, key := range []string{"event", "user", "data"} {
			nested, found := top[key]
			if !found {
				continue
			}
			var inner map[string]json.RawMessage
			if err := json.Unmarshal(nested, &inner); err != nil {
				continue
			}
			if raw, ok = inner[field]; ok {
				break
			}
		}
	}
	if !ok {
		return res, nil
	}

	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return res, malformed("mutation %s is not a string", field)
	}
	value = strings.ToLower(strings.TrimSpace(value))
	if value != "" && !domain.ValidFieldValue(field, value) {
		return res, malformed("mutation confirmed unknown %s %q", field, value)
	}
	res.Value = value
	res.Confirmed = value != ""
	return res, nil
}

// statusError maps a non-2xx response to a gateway error, keeping the server message when it has one.
func statusError(status int, body []byte) error {
	kind := domain.GatewayServerError
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = domain.GatewayUnauthorized
	case http.StatusNotFound:
		kind = domain.GatewayNotFound
	}
	return &domain.GatewayError{
		Kind:       kind,
		StatusCode: status,
		Message:    errorMessage(status, body),
	}
}

func errorMessage(status int, body []byte) string {
	var apiErr domain.APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	var flat struct {
		Error string `json:"error"`
		Msg   string `json:"msg"`
	}
	if err := json.Unmarshal(body, &flat); err == nil {
		if flat.Error != "" {
			return flat.Error
		}
		if flat.Msg != "" {
			return flat.Msg
		}
	}
	return fmt.Sprintf("unexpected status: %d", status)
}
