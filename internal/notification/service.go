// Package notification stores in-app messages for users.
package notification

import (
	"time"

	"rental-backend/internal/models"

	"gorm.io/gorm"
)

// Create stores a notification for userID pointing at ref. sentBy is set for
// messages written by a staff member.
func Create(tx *gorm.DB, userID uint, message string, ref models.Related, sentBy *uint) (*models.Notification, error) {
	return create(tx, userID, message, ref, sentBy, time.Time{})
}

// create leaves CreatedAt to gorm when at is zero.
func create(tx *gorm.DB, userID uint, message string, ref models.Related, sentBy *uint, at time.Time) (*models.Notification, error) {
	n := &models.Notification{
		UserID:    userID,
		Message:   message,
		SentByID:  sentBy,
		CreatedAt: at,
	}
	n.Attach(ref)
	if err := tx.Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// CreateIfAbsent creates the notification, stamped now, unless the same user
// already got the same message after now-window. A zero window checks the
// whole history. It reports whether a row was created.
func CreateIfAbsent(tx *gorm.DB, userID uint, message string, ref models.Related, window time.Duration, now time.Time) (bool, error) {
	q := tx.Model(&models.Notification{}).Where("user_id = ? AND message = ?", userID, message)
	if window > 0 {
		q = q.Where("created_at >= ?", now.Add(-window))
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if _, err := create(tx, userID, message, ref, nil, now); err != nil {
		return false, err
	}
	return true, nil
}

// StaffUsers returns the active admin and staff accounts.
func StaffUsers(tx *gorm.DB) ([]models.User, error) {
	var users []models.User
	err := tx.Where("role IN ? AND is_active = ?", []models.UserRole{models.RoleAdmin, models.RoleStaff}, true).
		Order("id").
		Find(&users).Error
	return users, err
}

// NotifyStaff sends message to every staff user and returns how many
// notifications were created. A zero window disables deduplication.
func NotifyStaff(tx *gorm.DB, message string, ref models.Related, window time.Duration, now time.Time, dedup bool) (int, error) {
	staff, err := StaffUsers(tx)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, u := range staff {
		if dedup {
			ok, err := CreateIfAbsent(tx, u.ID, message, ref, window, now)
			if err != nil {
				return created, err
			}
			if ok {
				created++
			}
			continue
		}
		if _, err := Create(tx, u.ID, message, ref, nil); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

type ListFilter struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}

func List(db *gorm.DB, userID uint, f ListFilter) ([]models.Notification, int64, error) {
	q := db.Model(&models.Notification{}).Where("user_id = ?", userID)
	if f.UnreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var items []models.Notification
	err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(f.Offset).Find(&items).Error
	return items, total, err
}

func UnreadCount(db *gorm.DB, userID uint) (int64, error) {
	var n int64
	err := db.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false).Count(&n).Error
	return n, err
}

// MarkRead flags one notification of userID as read. It returns
// gorm.ErrRecordNotFound when the notification belongs to someone else.
func MarkRead(db *gorm.DB, userID, id uint, now time.Time) error {
	var n models.Notification
	if err := db.Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		return err
	}
	if n.Read {
		return nil
	}
	return db.Model(&n).Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error
}

func MarkAllRead(db *gorm.DB, userID uint, now time.Time) (int64, error) {
	res := db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	return res.RowsAffected, res.Error
}
