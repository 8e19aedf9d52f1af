package repositories

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"librarydesk/internal/models"
)

// Search targets accepted by the borrow record queries.
const (
	SearchByBook          = "book"
	SearchByAuthor        = "author"
	SearchByBorrower      = "borrower"
	SearchByBorrowerEmail = "borrowerEmail"
)

// Return-status filters accepted by the borrow record queries.
const (
	ReturnStatusReturned    = "returned"
	ReturnStatusOverdue     = "overdue"
	ReturnStatusNotReturned = "not_returned"
)

// Account-status filters accepted by the admin report.
const (
	AccountStatusActive  = "active"
	AccountStatusDeleted = "deleted"
)

// RecordFilter drives the admin-wide borrow report. Today is the calendar
// date that overdue is judged against.
type RecordFilter struct {
	Search        string
	SearchBy      string
	ReturnStatus  string
	AccountStatus string
	Today         time.Time
	Page
}

// HistoryFilter drives a single user's borrow history.
type HistoryFilter struct {
	UserID       uuid.UUID
	Search       string
	SearchBy     string
	ReturnStatus string
	Today        time.Time
	Page
}

// RecordRow is one row of the admin report before identity reconciliation.
type RecordRow struct {
	ID            uuid.UUID
	BorrowDate    time.Time
	DueDate       time.Time
	ReturnDate    *time.Time
	Status        string
	IsDeleted     bool
	DerivedStatus string
	UserID        *uuid.UUID
	LiveName      *string
	LiveEmail     *string
	SnapshotName  *string
	SnapshotEmail *string
	BookID        uuid.UUID
	BookTitle     *string
	BookAuthor    *string
}

// HistoryRow is one row of a user's own borrow history.
type HistoryRow struct {
	ID         uuid.UUID
	UserName   string
	UserEmail  string
	BookID     uuid.UUID
	BookTitle  string
	BookAuthor string
	BorrowDate time.Time
	DueDate    time.Time
	ReturnDate *time.Time
	Status     string
}

const derivedStatusSQL = `CASE
	WHEN borrows.return_date IS NOT NULL THEN ?
	WHEN borrows.return_date IS NULL AND borrows.due_date < ? THEN ?
	WHEN borrows.return_date IS NULL AND borrows.due_date >= ? THEN ?
	ELSE ? END`

func derivedStatusArgs(today time.Time) []interface{} {
	return []interface{}{
		models.DerivedStatusReturned,
		today, models.DerivedStatusOverdue,
		today, models.DerivedStatusNotReturned,
		models.DerivedStatusUnknown,
	}
}

// whereSearch applies the search target. Borrower searches span both the live
// account and the snapshot kept for deleted accounts.
func whereSearch(q *gorm.DB, search, searchBy string) *gorm.DB {
	if search == "" {
		return q
	}
	pattern := likePattern(search)
	switch searchBy {
	case SearchByBook:
		return q.Where("LOWER(books.title) LIKE ?", pattern)
	case SearchByAuthor:
		return q.Where("LOWER(books.author) LIKE ?", pattern)
	case SearchByBorrower:
		return q.Where("((borrows.user_id IS NULL AND LOWER(borrows.user_name) LIKE ?) OR LOWER(users.name) LIKE ?)", pattern, pattern)
	case SearchByBorrowerEmail:
		return q.Where("((borrows.user_id IS NULL AND LOWER(borrows.user_email) LIKE ?) OR LOWER(users.email) LIKE ?)", pattern, pattern)
	}
	return q
}

// whereReturnStatus uses the same date comparison as derivedStatusSQL so a
// filtered row always displays the status it was filtered by.
func whereReturnStatus(q *gorm.DB, status string, today time.Time) *gorm.DB {
	switch status {
	case ReturnStatusReturned:
		return q.Where("borrows.return_date IS NOT NULL")
	case ReturnStatusOverdue:
		return q.Where("borrows.return_date IS NULL AND borrows.due_date < ?", today)
	case ReturnStatusNotReturned:
		return q.Where("borrows.return_date IS NULL AND borrows.due_date >= ?", today)
	}
	return q
}

func (r *borrowRepository) recordsBase(db *gorm.DB, filter RecordFilter) *gorm.DB {
	q := db.Table("borrows").
		Joins("LEFT JOIN users ON users.id = borrows.user_id").
		Joins("LEFT JOIN books ON books.id = borrows.book_id")
	q = whereSearch(q, filter.Search, filter.SearchBy)
	q = whereReturnStatus(q, filter.ReturnStatus, filter.Today)
	switch filter.AccountStatus {
	case AccountStatusActive:
		q = q.Where("borrows.is_deleted = ?", false)
	case AccountStatusDeleted:
		q = q.Where("borrows.is_deleted = ?", true)
	}
	return q
}

// ListRecords returns one page of the admin report, ordered by borrow date
// then id, together with the total number of matching rows.
func (r *borrowRepository) ListRecords(db *gorm.DB, filter RecordFilter) ([]RecordRow, int64, error) {
	if db == nil {
		db = r.db
	}

	var total int64
	if err := r.recordsBase(db, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []RecordRow
	err := filter.apply(
		r.recordsBase(db, filter).
			Select(`borrows.id AS id,
				borrows.borrow_date AS borrow_date,
				borrows.due_date AS due_date,
				borrows.return_date AS return_date,
				borrows.status AS status,
				borrows.is_deleted AS is_deleted,
				`+derivedStatusSQL+` AS derived_status,
				borrows.user_id AS user_id,
				users.name AS live_name,
				users.email AS live_email,
				borrows.user_name AS snapshot_name,
				borrows.user_email AS snapshot_email,
				borrows.book_id AS book_id,
				books.title AS book_title,
				books.author AS book_author`, derivedStatusArgs(filter.Today)...).
			Order("borrows.borrow_date ASC, borrows.id ASC"),
	).Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *borrowRepository) historyBase(db *gorm.DB, filter HistoryFilter) *gorm.DB {
	q := db.Table("borrows").
		Joins("JOIN books ON books.id = borrows.book_id").
		Joins("JOIN users ON users.id = borrows.user_id").
		Where("borrows.user_id = ?", filter.UserID)
	q = whereSearch(q, filter.Search, filter.SearchBy)
	return whereReturnStatus(q, filter.ReturnStatus, filter.Today)
}

// ListHistory returns one page of a user's borrows, most recent first.
func (r *borrowRepository) ListHistory(db *gorm.DB, filter HistoryFilter) ([]HistoryRow, int64, error) {
	if db == nil {
		db = r.db
	}

	var total int64
	if err := r.historyBase(db, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []HistoryRow
	err := filter.apply(
		r.historyBase(db, filter).
			Select(`borrows.id AS id,
				users.name AS user_name,
				users.email AS user_email,
				books.id AS book_id,
				books.title AS book_title,
				books.author AS book_author,
				borrows.borrow_date AS borrow_date,
				borrows.due_date AS due_date,
				borrows.return_date AS return_date,
				`+derivedStatusSQL+` AS status`, derivedStatusArgs(filter.Today)...).
			Order("borrows.borrow_date DESC, borrows.id DESC"),
	).Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
