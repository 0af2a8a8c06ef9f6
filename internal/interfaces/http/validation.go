package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
)

var validate = validator.New()

// validationMessage aplica las etiquetas `validate` del DTO; vacío si es válido.
func validationMessage(in any) string {
	err := validate.Struct(in)
	if err == nil {
		return ""
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

func validationError(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: msg})
}

// pageFromQuery lee limit/offset de la query; devuelve el mensaje de validación si no son válidos.
func pageFromQuery(c *fiber.Ctx) (dto.PageRequest, string) {
	page := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	if msg := validationMessage(page); msg != "" {
		return page, msg
	}
	page.DefaultPage()
	return page, ""
}

// idParam lee un parámetro de ruta que debe ser un UUID.
func idParam(c *fiber.Ctx, name string) (string, bool) {
	id := c.Params(name)
	return id, uuid.Validate(id) == nil
}

func invalidID(c *fiber.Ctx, name string) error {
	return validationError(c, name+": uuid")
}
