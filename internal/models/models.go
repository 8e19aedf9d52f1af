package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Persisted lifecycle labels for Borrow.Status.
const (
	BorrowStatusNotReturned  = "Not Returned"
	BorrowStatusReturned     = "Returned"
	BorrowStatusReturnedLate = "Returned (Late)"
)

// Derived (read-side) statuses.
const (
	DerivedStatusReturned    = "Returned"
	DerivedStatusOverdue     = "Overdue"
	DerivedStatusNotReturned = "Not Returned"
	DerivedStatusUnknown     = "Unknown"
)

// Account statuses reported next to a borrow record.
const (
	AccountStatusActive  = "Active"
	AccountStatusDeleted = "Deleted"
)

// DeletedAccountLabel stands in for a borrower whose snapshot is empty.
const DeletedAccountLabel = "Deleted Account"

// User is an account; borrowers and admins share the table.
type User struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name             string     `gorm:"size:50;not null" json:"name"`
	Email            string     `gorm:"size:100;not null;uniqueIndex" json:"email"`
	Password         string     `gorm:"size:200;not null" json:"-"`
	IsVerified       bool       `gorm:"not null;default:false" json:"is_verified"`
	IsAdmin          bool       `gorm:"not null;default:false" json:"is_admin"`
	ResetToken       *string    `gorm:"size:255" json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
}

// Book is a single-copy catalogue entry, soft-deleted via IsDeleted.
type Book struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string    `gorm:"size:150;not null" json:"title"`
	Author    string    `gorm:"size:100;not null" json:"author"`
	Available bool      `gorm:"not null;default:true" json:"available"`
	IsDeleted bool      `gorm:"not null;default:false;index" json:"is_deleted"`
}

// Borrow is one row of the borrow ledger. UserID is cleared when the owning
// account is deleted; UserName/UserEmail then carry the snapshot taken at
// deletion time.
type Borrow struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User       *User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
	UserName   *string    `gorm:"size:100" json:"user_name"`
	UserEmail  *string    `gorm:"size:100" json:"user_email"`
	IsDeleted  bool       `gorm:"not null;default:false" json:"is_deleted"`
	BookID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"book_id"`
	Book       Book       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	BorrowDate time.Time  `gorm:"not null;index" json:"borrow_date"`
	DueDate    time.Time  `gorm:"type:date;not null" json:"due_date"`
	ReturnDate *time.Time `gorm:"type:date" json:"return_date"`
	Status     string     `gorm:"size:20;not null;default:'Not Returned'" json:"status"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (b *Book) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (b *Borrow) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// All lists every model in dependency order, for AutoMigrate.
func All() []interface{} {
	return []interface{}{&User{}, &Book{}, &Borrow{}}
}
