package billing

import (
	"encoding/json"
	"fmt"
)

// Credentials configure the native SDK. Only the SDK key of the platform the
// client runs on is sent.
type Credentials struct {
	Site              string
	PublishableAPIKey string
	IOSSDKKey         string
	AndroidSDKKey     string
}

// Normalizer absorbs the payload differences between the native SDKs. It is
// the only place where platform specific decoding lives.
type Normalizer interface {
	Platform() Platform

	// SDKKey picks the SDK key for this platform out of c.
	SDKKey(c Credentials) string

	// Subscription unwraps one element of a retrieveSubscriptions response.
	Subscription(raw json.RawMessage) (*Subscription, error)

	// Item unwraps one element of a retrieveAllItems response.
	Item(raw json.RawMessage) (*Item, error)

	// Plan unwraps one element of a retrieveAllPlans response.
	Plan(raw json.RawMessage) (*Plan, error)
}

// UnwrapEnvelope decodes the record stored under key of a single-key native
// envelope into dst. A missing or null key fails with ErrMissingEnvelope.
func UnwrapEnvelope(raw json.RawMessage, key string, dst any) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return err
	}

	inner, ok := envelope[key]
	if !ok || string(inner) == "null" {
		return fmt.Errorf("%w: %s", ErrMissingEnvelope, key)
	}
	return json.Unmarshal(inner, dst)
}

// WrapEnvelope is the inverse of UnwrapEnvelope.
func WrapEnvelope(key string, v any) (json.RawMessage, error) {
	return json.Marshal(map[string]any{key: v})
}
