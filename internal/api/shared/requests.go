package shared

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// maxRequestBodyBytes caps how much of a request body is read. Document
// uploads are the largest payloads this API accepts.
const maxRequestBodyBytes = 4 << 20 // 4 MiB

// Shared validator instance; validator.Validate caches struct metadata
// and is safe for concurrent use.
var validate = validator.New()

// DecodeJSON decodes the request body into the given struct, enforcing
// the body size limit.
func DecodeJSON(r *http.Request, v any) error {
	body := http.MaxBytesReader(nil, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode request body: %w", err)
	}
	return nil
}

// ValidateRequest validates the given struct using its validate tags.
// Types that implement their own Validate method are validated with it
// instead.
func ValidateRequest(v any) error {
	if validator, ok := v.(interface{ Validate() error }); ok {
		return validator.Validate()
	}
	return validate.Struct(v)
}
