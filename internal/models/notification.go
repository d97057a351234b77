package models

import "time"

type RelatedKind string

const (
	RelatedNone        RelatedKind = ""
	RelatedLease       RelatedKind = "lease"
	RelatedMaintenance RelatedKind = "maintenance_request"
	RelatedPayment     RelatedKind = "payment"
)

// Related identifies the record a notification points at. Exactly one of the
// typed foreign keys on Notification is set for a given kind.
type Related struct {
	Kind RelatedKind
	ID   uint
}

func LeaseRef(id uint) Related       { return Related{Kind: RelatedLease, ID: id} }
func MaintenanceRef(id uint) Related { return Related{Kind: RelatedMaintenance, ID: id} }
func PaymentRef(id uint) Related     { return Related{Kind: RelatedPayment, ID: id} }

type Notification struct {
	ID       uint `gorm:"primaryKey"`
	UserID   uint `gorm:"index;not null"`
	User     User
	Message  string `gorm:"type:text;not null"`
	Read     bool   `gorm:"column:is_read;not null;default:false;index"`
	ReadAt   *time.Time
	SentByID *uint

	RelatedKind          RelatedKind `gorm:"size:30"`
	LeaseID              *uint       `gorm:"index"`
	Lease                *Lease
	MaintenanceRequestID *uint `gorm:"index"`
	MaintenanceRequest   *MaintenanceRequest
	PaymentID            *uint `gorm:"index"`
	Payment              *Payment

	CreatedAt time.Time `gorm:"index"`
}

// Attach points the notification at r, clearing any previous reference.
func (n *Notification) Attach(r Related) {
	n.RelatedKind = r.Kind
	n.LeaseID, n.MaintenanceRequestID, n.PaymentID = nil, nil, nil
	id := r.ID
	switch r.Kind {
	case RelatedLease:
		n.LeaseID = &id
	case RelatedMaintenance:
		n.MaintenanceRequestID = &id
	case RelatedPayment:
		n.PaymentID = &id
	default:
		n.RelatedKind = RelatedNone
	}
}

// Related returns the referenced record, if any.
func (n Notification) Related() (Related, bool) {
	switch {
	case n.RelatedKind == RelatedLease && n.LeaseID != nil:
		return LeaseRef(*n.LeaseID), true
	case n.RelatedKind == RelatedMaintenance && n.MaintenanceRequestID != nil:
		return MaintenanceRef(*n.MaintenanceRequestID), true
	case n.RelatedKind == RelatedPayment && n.PaymentID != nil:
		return PaymentRef(*n.PaymentID), true
	}
	return Related{}, false
}
