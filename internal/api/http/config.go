package httpapi

import (
	_ "embed"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

//go:embed config.html
var configPage []byte

// configPageHandler serves the watch configuration page. The page pre-fills
// itself from the URL fragment and closes by redirecting to the return_to
// URL with the updated settings in the fragment.
func configPageHandler(_ Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Send(configPage)
	}
}
