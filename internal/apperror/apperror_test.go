package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestToHTTP(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", NotFound("lease"), http.StatusNotFound, "NOT_FOUND"},
		{"validation", Invalid("amount", "must be positive"), http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"conflict", Conflict("unit is occupied"), http.StatusConflict, "CONFLICT"},
		{"wrapped", fmt.Errorf("saving: %w", Forbidden("")), http.StatusForbidden, "FORBIDDEN"},
		{"fiber", fiber.NewError(fiber.StatusBadRequest, "bad id"), http.StatusBadRequest, "Bad Request"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := ToHTTP(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body["error"])
		})
	}
}

func TestToHTTPIncludesFields(t *testing.T) {
	_, body := ToHTTP(Validation(map[string]string{"phone": "required"}))
	assert.Equal(t, map[string]string{"phone": "required"}, body["fields"])
}

func TestFromDB(t *testing.T) {
	assert.NoError(t, FromDB(nil, "tenant"))

	var nf *NotFoundError
	assert.ErrorAs(t, FromDB(gorm.ErrRecordNotFound, "tenant"), &nf)
	assert.Equal(t, "tenant not found", nf.Error())

	var ie *InternalError
	assert.ErrorAs(t, FromDB(errors.New("connection reset"), "tenant"), &ie)

	c := Conflict("dup")
	assert.Same(t, c, FromDB(c, "tenant"))
}
