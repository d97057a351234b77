package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"rental-backend/internal/apperror"
	"rental-backend/internal/auth"
	"rental-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LogOptions struct {
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

func toJSON(v any) datatypes.JSON {
	if v == nil {
		return datatypes.JSON("null")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(b)
}

func WriteLog(db *gorm.DB, opts LogOptions) error {
	entry := models.AuditLog{
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  toJSON(opts.Before),
		AfterData:   toJSON(opts.After),
	}
	if err := db.Create(&entry).Error; err != nil {
		return fmt.Errorf("could not write audit log: %w", err)
	}
	return nil
}

// Record writes an audit entry for the user behind c. A failed write is
// logged and otherwise ignored.
func Record(c *fiber.Ctx, db *gorm.DB, opts LogOptions) {
	opts.UserID, opts.UserName = Actor(c, db)
	if err := WriteLog(db, opts); err != nil {
		log.Printf("[AUDIT] %v", err)
	}
}

// Actor returns the id and display name of the authenticated user.
func Actor(c *fiber.Ctx, db *gorm.DB) (uint, string) {
	id := auth.UserID(c)
	var user models.User
	if err := db.Select("id", "name", "username").First(&user, id).Error; err != nil {
		return id, ""
	}
	if user.Name != "" {
		return id, user.Name
	}
	return id, user.Username
}

var errNotUndoable = errors.New("this change cannot be undone")

// UndoLog reverts the change recorded by entry logID and records the undo.
func UndoLog(db *gorm.DB, logID, userID uint, userName string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var entry models.AuditLog
		if err := tx.First(&entry, logID).Error; err != nil {
			return apperror.FromDB(err, "audit log")
		}
		if entry.IsUndone {
			return apperror.Conflict("this change was already undone")
		}

		var err error
		switch entry.Action {
		case models.AuditActionCreate:
			err = deleteEntity(tx, entry.EntityType, entry.EntityID)
		case models.AuditActionDelete:
			err = recreateEntity(tx, entry.EntityType, entry.BeforeData)
		default:
			err = errNotUndoable
		}
		if errors.Is(err, errNotUndoable) {
			return apperror.Conflict(err.Error())
		}
		if err != nil {
			return err
		}

		now := time.Now()
		entry.IsUndone = true
		entry.UndoneBy = &userID
		entry.UndoneAt = &now
		if err := tx.Save(&entry).Error; err != nil {
			return err
		}

		return WriteLog(tx, LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  entry.EntityType,
			EntityID:    entry.EntityID,
			Action:      models.AuditActionUndo,
			Description: "Undone: " + entry.Description,
			Before:      json.RawMessage(entry.AfterData),
			After:       json.RawMessage(entry.BeforeData),
		})
	})
}

// Only expenses are undoable: they are ledger rows with no dependants.
func deleteEntity(tx *gorm.DB, entityType string, id uint) error {
	switch entityType {
	case "expense":
		res := tx.Delete(&models.Expense{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.NotFound("expense")
		}
		return nil
	default:
		return errNotUndoable
	}
}

func recreateEntity(tx *gorm.DB, entityType string, data datatypes.JSON) error {
	switch entityType {
	case "expense":
		var e models.Expense
		if err := json.Unmarshal(data, &e); err != nil {
			return err
		}
		return tx.Omit("Building", "Category").Create(&e).Error
	default:
		return errNotUndoable
	}
}
