package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
)

// RetryPolicy lists how long to wait before each retry, per failure class.
// The number of attempts is one more than the longer of the two lists.
type RetryPolicy struct {
	RateLimitWaits   []time.Duration
	ServerErrorWaits []time.Duration
}

// DefaultRetryPolicy is tuned for interactive replies: a user is waiting, so waits stay short.
var DefaultRetryPolicy = RetryPolicy{
	RateLimitWaits:   []time.Duration{2 * time.Second, 5 * time.Second},
	ServerErrorWaits: []time.Duration{1 * time.Second, 3 * time.Second},
}

func (p RetryPolicy) attempts() int {
	n := len(p.RateLimitWaits)
	if len(p.ServerErrorWaits) > n {
		n = len(p.ServerErrorWaits)
	}
	return n + 1
}

// CallWithRetry issues a Responses request, retrying rate-limit and server errors per policy.
// Waits are abandoned when ctx is done.
func CallWithRetry(ctx context.Context, client *openai.Client, params responses.ResponseNewParams, policy RetryPolicy) (*responses.Response, error) {
	maxAttempts := policy.attempts()
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := client.Responses.New(ctx, params)
		if err == nil {
			return resp, nil
		}

		var waits []time.Duration
		switch {
		case isRateLimitError(err):
			waits = policy.RateLimitWaits
		case isServerError(err):
			waits = policy.ServerErrorWaits
		default:
			return nil, err
		}
		if attempt >= len(waits) {
			return nil, err
		}
		if err := sleepCtx(ctx, waits[attempt]); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed after %d attempts due to OpenAI API issues", maxAttempts)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "server_error")
}

// GenerateSchema reflects T into a JSON schema accepted by strict structured outputs.
func GenerateSchema[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	schemaObj, err := schemaToMap(schema)
	if err != nil {
		panic(err)
	}
	ensureOpenAICompliance(schemaObj)
	return schemaObj
}

// ReflectSchema returns the plain (non-strict) JSON schema for T, with definitions inlined.
func ReflectSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	var v T
	return reflector.Reflect(v)
}

func schemaToMap(schema *jsonschema.Schema) (map[string]interface{}, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	requiredKey             = "required"
	itemsKey                = "items"
)

// ensureOpenAICompliance closes every object and marks all of its properties required.
func ensureOpenAICompliance(schema map[string]interface{}) {
	if schemaType, ok := schema[typeKey].(string); ok && schemaType == "object" {
		schema[additionalPropertiesKey] = false

		if properties, ok := schema[propertiesKey].(map[string]interface{}); ok {
			requiredFields := make([]string, 0, len(properties))
			for propName := range properties {
				requiredFields = append(requiredFields, propName)
			}
			sort.Strings(requiredFields)
			if len(requiredFields) > 0 {
				schema[requiredKey] = requiredFields
			}
		}
	}

	if properties, ok := schema[propertiesKey].(map[string]interface{}); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]interface{}); ok {
				ensureOpenAICompliance(propMap)
			}
		}
	}

	if items, ok := schema[itemsKey].(map[string]interface{}); ok {
		ensureOpenAICompliance(items)
	}

	if additionalProps, ok := schema[additionalPropertiesKey].(map[string]interface{}); ok {
		ensureOpenAICompliance(additionalProps)
	}
}
