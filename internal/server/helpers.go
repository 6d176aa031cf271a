package server

import (
	"encoding/json"
	"errors"
	"strings"

	"ideon/internal/middleware"
	"ideon/internal/models"
	"ideon/internal/service"
	"ideon/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// respondError renders err with the status its AppError code maps to. A
// login blocked on verification also returns the pending user so the client
// can jump to the code form.
func respondError(c *fiber.Ctx, err error) error {
	var verr *service.VerificationRequiredError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":  verr.Error(),
			"code":   models.CodeUnauthorized,
			"userId": verr.UserID,
			"email":  verr.Email,
		})
	}
	return models.RespondWithError(c, models.StatusFor(err), err)
}

// notFound answers for a mutation that found nothing to change.
func notFound(c *fiber.Ctx, resource, id string) error {
	return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError(resource, id))
}

func badBody(c *fiber.Ctx) error {
	return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
}

// currentUser returns the authenticated user id set by the auth middleware.
func currentUser(c *fiber.Ctx) string {
	return middleware.UserID(c)
}

// listField accepts either a JSON array of strings or one comma separated
// string, the way the submission form sends tags.
type listField []string

func (l *listField) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = nil
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = validation.CleanList(list)
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = validation.SplitList(raw)
	return nil
}

// queryPresent reports whether key appears in the query string, even empty.
func queryPresent(c *fiber.Ctx, key string) bool {
	return c.Context().QueryArgs().Has(key)
}

func trimmedParam(c *fiber.Ctx, key string) string {
	return strings.TrimSpace(c.Params(key))
}
