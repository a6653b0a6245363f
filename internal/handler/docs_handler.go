package handler

import (
	_ "embed"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"gopkg.in/yaml.v3"
)

//go:embed docs/openapi.yaml
var openAPIYAML []byte

// RegisterDocsRoutes serves the embedded OpenAPI document as JSON. The conversion runs once here.
func RegisterDocsRoutes(router fiber.Router) error {
	document, err := openAPIJSON(openAPIYAML)
	if err != nil {
		return err
	}

	router.Get("/docs/openapi.json", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Status(fiber.StatusOK).Send(document)
	})
	return nil
}

func openAPIJSON(source []byte) ([]byte, error) {
	var document any
	if err := yaml.Unmarshal(source, &document); err != nil {
		return nil, fmt.Errorf("failed to parse openapi document: %w", err)
	}

	encoded, err := json.Marshal(stringKeys(document))
	if err != nil {
		return nil, fmt.Errorf("failed to encode openapi document: %w", err)
	}
	return encoded, nil
}

// stringKeys rewrites YAML maps with non-string keys so they can be encoded as JSON objects.
func stringKeys(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			v[key] = stringKeys(item)
		}
		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = stringKeys(item)
		}
		return out
	case []any:
		for i, item := range v {
			v[i] = stringKeys(item)
		}
		return v
	default:
		return v
	}
}
