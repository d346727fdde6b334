package defense

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips HTML and script fragments out of request payloads before
// they reach business logic, and drops operator-shaped keys aimed at the
// data store's query layer.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Middleware rewrites JSON bodies and query parameters in place. Bodies that
// are not valid JSON pass through untouched; the parse boundary in the
// handler rejects them.
func (s *Sanitizer) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if body := c.Body(); len(body) > 0 {
			var payload interface{}
			if err := json.Unmarshal(body, &payload); err == nil {
				cleaned, err := json.Marshal(s.clean(payload))
				if err == nil {
					c.Request().SetBody(cleaned)
				}
			}
		}

		args := c.Request().URI().QueryArgs()
		args.VisitAll(func(key, value []byte) {
			args.Set(string(key), s.policy.Sanitize(string(value)))
		})

		return c.Next()
	}
}

// clean walks a decoded JSON value, sanitizing every string and removing
// object keys that look like query operators ($-prefixed or dotted).
func (s *Sanitizer) clean(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		return s.policy.Sanitize(val)
	case []interface{}:
		for i := range val {
			val[i] = s.clean(val[i])
		}
		return val
	case map[string]interface{}:
		for key, item := range val {
			if strings.HasPrefix(key, "$") || strings.Contains(key, ".") {
				delete(val, key)
				continue
			}
			val[key] = s.clean(item)
		}
		return val
	default:
		return v
	}
}
