package notification

import (
	"errors"
	"time"

	"rental-backend/internal/apperror"
	"rental-backend/internal/auth"
	"rental-backend/internal/httpx"
	"rental-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type NotificationResponse struct {
	ID          uint               `json:"id"`
	Message     string             `json:"message"`
	IsRead      bool               `json:"is_read"`
	ReadAt      *string            `json:"read_at"`
	CreatedAt   string             `json:"created_at"`
	SentByID    *uint              `json:"sent_by_id"`
	RelatedKind models.RelatedKind `json:"related_kind,omitempty"`
	RelatedID   *uint              `json:"related_id"`
}

func ToResponse(n models.Notification) NotificationResponse {
	r := NotificationResponse{
		ID:        n.ID,
		Message:   n.Message,
		IsRead:    n.Read,
		CreatedAt: n.CreatedAt.Format("2006-01-02 15:04:05"),
		SentByID:  n.SentByID,
	}
	if n.ReadAt != nil {
		s := n.ReadAt.Format("2006-01-02 15:04:05")
		r.ReadAt = &s
	}
	if ref, ok := n.Related(); ok {
		r.RelatedKind = ref.Kind
		r.RelatedID = &ref.ID
	}
	return r
}

// GET /api/notifications?unread=true
func ListHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := httpx.Paging(c)
		items, total, err := List(db.WithContext(c.UserContext()), auth.UserID(c), ListFilter{
			UnreadOnly: c.QueryBool("unread"),
			Limit:      page.Limit,
			Offset:     page.Offset,
		})
		if err != nil {
			return apperror.Internal(err)
		}
		unread, err := UnreadCount(db, auth.UserID(c))
		if err != nil {
			return apperror.Internal(err)
		}

		resp := make([]NotificationResponse, 0, len(items))
		for _, n := range items {
			resp = append(resp, ToResponse(n))
		}
		return c.JSON(fiber.Map{"items": resp, "total": total, "unread": unread})
	}
}

// GET /api/notifications/unread-count
func UnreadCountHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		n, err := UnreadCount(db.WithContext(c.UserContext()), auth.UserID(c))
		if err != nil {
			return apperror.Internal(err)
		}
		return c.JSON(fiber.Map{"unread": n})
	}
}

// POST /api/notifications/:id/read
func MarkReadHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		err = MarkRead(db.WithContext(c.UserContext()), auth.UserID(c), id, time.Now())
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("notification")
		}
		if err != nil {
			return apperror.Internal(err)
		}
		return c.JSON(fiber.Map{"message": "marked as read"})
	}
}

// POST /api/notifications/read-all
func MarkAllReadHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		n, err := MarkAllRead(db.WithContext(c.UserContext()), auth.UserID(c), time.Now())
		if err != nil {
			return apperror.Internal(err)
		}
		return c.JSON(fiber.Map{"updated": n})
	}
}
