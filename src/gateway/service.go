// Package gateway accepts JSON payloads, stamps them with a transaction id and
// hands them to the publisher.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"kafka-relay/src/broker"
	"kafka-relay/src/codec"
	"kafka-relay/src/contracts"
	"kafka-relay/src/logger"
	"kafka-relay/src/publish"
)

// Validation errors. Both map to 400.
var (
	ErrEmptyPayload = errors.New("empty payload")
	ErrMissingKey   = errors.New("missing key")
)

// InvalidJSONError reports a body that is not a JSON object.
type InvalidJSONError struct {
	Err error
}

func (e *InvalidJSONError) Error() string {
	return fmt.Sprintf("invalid JSON: %v", e.Err)
}

func (e *InvalidJSONError) Unwrap() error {
	return e.Err
}

// Publisher mirrors an encoded payload onto the delivery topics.
// *publish.Publisher implements it.
type Publisher interface {
	PublishUnkeyed(ctx context.Context, body []byte) ([]publish.TopicResult, error)
	PublishKeyed(ctx context.Context, key string, body []byte) ([]publish.TopicResult, error)
}

// Service validates and enriches payloads before publishing them.
type Service struct {
	publisher Publisher
	codec     codec.JSON
	logger    logger.Logger
}

// NewService creates a gateway service.
func NewService(p Publisher, log logger.Logger) *Service {
	return &Service{
		publisher: p,
		logger:    log,
	}
}

// DecodePayload parses a request body into a payload. A zero-length body is an
// empty payload.
func (s *Service) DecodePayload(data []byte) (map[string]interface{}, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	payload, err := s.codec.DecodeObject(data)
	if err != nil {
		return nil, &InvalidJSONError{Err: err}
	}
	return payload, nil
}

// Ingest publishes the payload to every delivery topic without a key.
func (s *Service) Ingest(ctx context.Context, payload map[string]interface{}) (contracts.Receipt, error) {
	if len(payload) == 0 {
		return contracts.Receipt{}, ErrEmptyPayload
	}

	tranID, body, err := s.enrich(payload)
	if err != nil {
		return contracts.Receipt{}, err
	}

	if _, err := s.publisher.PublishUnkeyed(ctx, body); err != nil {
		s.logger.Error("[Gateway] Failed to publish api_tran_id=%s: %v", tranID, err)
		return contracts.Receipt{}, err
	}

	s.logger.Info("[Gateway] Published api_tran_id=%s", tranID)
	return contracts.Receipt{TranID: tranID}, nil
}

// IngestWithKey publishes the payload keyed by its "key" field, so every
// payload with the same key lands on the same partition.
func (s *Service) IngestWithKey(ctx context.Context, payload map[string]interface{}) (contracts.Receipt, error) {
	if len(payload) == 0 {
		return contracts.Receipt{}, ErrEmptyPayload
	}

	raw, ok := payload[contracts.KeyField]
	if !ok || raw == nil {
		return contracts.Receipt{}, ErrMissingKey
	}
	key := stringifyKey(raw)

	tranID, body, err := s.enrich(payload)
	if err != nil {
		return contracts.Receipt{}, err
	}

	if _, err := s.publisher.PublishKeyed(ctx, key, body); err != nil {
		s.logger.Error("[Gateway] Failed to publish api_tran_id=%s key=%s: %v", tranID, key, err)
		return contracts.Receipt{}, err
	}

	s.logger.Info("[Gateway] Published api_tran_id=%s with key=%s", tranID, key)
	return contracts.Receipt{TranID: tranID, Key: key, Keyed: true}, nil
}

// enrich sets a fresh transaction id on the payload, replacing any caller
// value, and encodes it.
func (s *Service) enrich(payload map[string]interface{}) (string, []byte, error) {
	tranID := uuid.NewString()
	payload[contracts.TranIDField] = tranID

	body, err := s.codec.Encode(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", broker.ErrSerialization, err)
	}
	return tranID, body, nil
}

// stringifyKey renders a key the way it reads in the request, without JSON quoting.
// Objects render as {a=1, b=x} with sorted names and arrays as [1, 2].
func stringifyKey(v interface{}) string {
	switch k := v.(type) {
	case nil:
		return "null"
	case string:
		return k
	case json.Number:
		return k.String()
	case bool:
		return strconv.FormatBool(k)
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64)
	case map[string]interface{}:
		names := make([]string, 0, len(k))
		for name := range k {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = name + "=" + stringifyKey(k[name])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case []interface{}:
		parts := make([]string, len(k))
		for i, elem := range k {
			parts[i] = stringifyKey(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(k)
	}
}

// StatusFor maps a service error to an HTTP status and response text.
func StatusFor(err error) (int, string) {
	var invalid *InvalidJSONError
	switch {
	case errors.Is(err, ErrEmptyPayload):
		return http.StatusBadRequest, "JSON data is required"
	case errors.Is(err, ErrMissingKey):
		return http.StatusBadRequest, "Missing required 'key' field in JSON data"
	case errors.As(err, &invalid):
		return http.StatusBadRequest, fmt.Sprintf("Invalid JSON format: %v", invalid.Err)
	default:
		return http.StatusInternalServerError, fmt.Sprintf("Error processing data: %v", err)
	}
}
