// Package httpx holds small request parsing helpers shared by handlers.
package httpx

import (
	"strings"
	"time"

	"rental-backend/internal/apperror"
	"rental-backend/internal/datex"

	"github.com/gofiber/fiber/v2"
)

// ID reads a positive integer route parameter.
func ID(c *fiber.Ctx, name string) (uint, error) {
	v, err := c.ParamsInt(name)
	if err != nil || v <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return uint(v), nil
}

// Date parses a required YYYY-MM-DD value; field names the offending input.
func Date(field, value string) (time.Time, error) {
	d, err := datex.Parse(strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, apperror.Invalid(field, "must be a date in YYYY-MM-DD format")
	}
	return d, nil
}

// OptionalDate is Date for inputs that may be empty or absent.
func OptionalDate(field string, value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	d, err := Date(field, *value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// QueryDate reads an optional date from the query string.
func QueryDate(c *fiber.Ctx, name string) (*time.Time, error) {
	v := c.Query(name)
	return OptionalDate(name, &v)
}

// QueryUint reads an optional positive integer from the query string.
func QueryUint(c *fiber.Ctx, name string) (uint, error) {
	if c.Query(name) == "" {
		return 0, nil
	}
	v := c.QueryInt(name, -1)
	if v <= 0 {
		return 0, apperror.Invalid(name, "must be a positive integer")
	}
	return uint(v), nil
}

type Page struct {
	Limit  int
	Offset int
}

// Paging reads ?page= and ?page_size= (default 50, max 200).
func Paging(c *fiber.Ctx) Page {
	size := c.QueryInt("page_size", 50)
	if size <= 0 || size > 200 {
		size = 50
	}
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	return Page{Limit: size, Offset: (page - 1) * size}
}

// YearMonth reads ?year= and ?month=, defaulting to the month of today.
func YearMonth(c *fiber.Ctx, today time.Time) (int, time.Month, error) {
	year := c.QueryInt("year", today.Year())
	month := c.QueryInt("month", int(today.Month()))
	if year < 2000 || year > 2100 {
		return 0, 0, apperror.Invalid("year", "is out of range")
	}
	if month < 1 || month > 12 {
		return 0, 0, apperror.Invalid("month", "must be between 1 and 12")
	}
	return year, time.Month(month), nil
}
