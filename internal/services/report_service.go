package services

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"librarydesk/internal/models"
	"librarydesk/internal/repositories"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Pagination is a normalized page request.
type Pagination struct {
	Page  int
	Limit int
}

// NewPagination clamps page to >= 1 and limit to [1, MaxPageSize], using
// DefaultPageSize for a non-positive limit. Page is capped so the row offset
// cannot overflow int.
func NewPagination(page, limit int) Pagination {
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}
	return Pagination{Page: page, Limit: limit}
}

func (p Pagination) window() repositories.Page {
	return repositories.Page{Offset: (p.Page - 1) * p.Limit, Limit: p.Limit}
}

// TotalPages is ceil(total / limit); zero when nothing matched.
func (p Pagination) TotalPages(total int64) int {
	limit := int64(p.Limit)
	return int((total + limit - 1) / limit)
}

// RecordQuery is the admin report request. Empty fields leave that
// dimension unfiltered.
type RecordQuery struct {
	Search        string
	SearchBy      string
	ReturnStatus  string
	AccountStatus string
	Pagination
}

// HistoryQuery is a user's own history request.
type HistoryQuery struct {
	Search       string
	SearchBy     string
	ReturnStatus string
	Pagination
}

// BorrowRecord is a reconciled row of the admin report.
type BorrowRecord struct {
	BorrowID      uuid.UUID  `json:"borrow_id"`
	BorrowDate    time.Time  `json:"borrow_date"`
	DueDate       time.Time  `json:"due_date"`
	ReturnDate    *time.Time `json:"return_date"`
	UserID        *uuid.UUID `json:"user_id"`
	UserName      string     `json:"user_name"`
	UserEmail     string     `json:"user_email"`
	AccountStatus string     `json:"account_status"`
	BookID        uuid.UUID  `json:"book_id"`
	BookTitle     string     `json:"book_title"`
	BookAuthor    string     `json:"book_author"`
	BorrowStatus  string     `json:"borrow_status"`
}

type RecordPage struct {
	Records    []BorrowRecord `json:"records"`
	TotalPages int            `json:"totalPages"`
}

type HistoryEntry struct {
	BorrowID   uuid.UUID  `json:"borrow_id"`
	UserName   string     `json:"user_name"`
	UserEmail  string     `json:"user_email"`
	BookID     uuid.UUID  `json:"book_id"`
	BookTitle  string     `json:"book_title"`
	BookAuthor string     `json:"book_author"`
	BorrowDate time.Time  `json:"borrow_date"`
	ReturnDate *time.Time `json:"return_date"`
	DueDate    string     `json:"due_date"`
	Status     string     `json:"status"`
}

type HistoryPage struct {
	History     []HistoryEntry `json:"history"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
}

// ReportService builds read-only views over the borrow ledger.
type ReportService interface {
	BorrowRecords(ctx context.Context, q RecordQuery) (*RecordPage, error)
	UserHistory(ctx context.Context, userID uuid.UUID, q HistoryQuery) (*HistoryPage, error)
}

type reportService struct {
	db         *gorm.DB
	borrowRepo repositories.BorrowRepository
	log        *zap.Logger
	now        Clock
}

func NewReportService(db *gorm.DB, borrowRepo repositories.BorrowRepository, log *zap.Logger, clock Clock) ReportService {
	if clock == nil {
		clock = SystemClock
	}
	return &reportService{
		db:         db,
		borrowRepo: borrowRepo,
		log:        log.Named("report"),
		now:        clock,
	}
}

// normalizeFilter lower-cases a filter value and treats "all" as unset.
func normalizeFilter(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "all" {
		return ""
	}
	return v
}

func validateSearchBy(searchBy string) error {
	switch searchBy {
	case "", repositories.SearchByBook, repositories.SearchByAuthor,
		repositories.SearchByBorrower, repositories.SearchByBorrowerEmail:
		return nil
	}
	return Validationf("unknown search target %q", searchBy)
}

func validateReturnStatus(status string) error {
	switch status {
	case "", repositories.ReturnStatusReturned, repositories.ReturnStatusOverdue,
		repositories.ReturnStatusNotReturned:
		return nil
	}
	return Validationf("unknown return status %q", status)
}

// BorrowRecords returns one page of the admin-wide report. Borrowers whose
// account is gone are shown with their snapshot identity.
func (s *reportService) BorrowRecords(ctx context.Context, q RecordQuery) (*RecordPage, error) {
	q.Pagination = NewPagination(q.Page, q.Limit)
	q.ReturnStatus = normalizeFilter(q.ReturnStatus)
	q.AccountStatus = normalizeFilter(q.AccountStatus)
	if err := validateSearchBy(q.SearchBy); err != nil {
		return nil, err
	}
	if err := validateReturnStatus(q.ReturnStatus); err != nil {
		return nil, err
	}
	switch q.AccountStatus {
	case "", repositories.AccountStatusActive, repositories.AccountStatusDeleted:
	default:
		return nil, Validationf("unknown account status %q", q.AccountStatus)
	}
	searchBy := q.SearchBy
	if searchBy == "" {
		searchBy = repositories.SearchByBook
	}

	rows, total, err := s.borrowRepo.ListRecords(s.db.WithContext(ctx), repositories.RecordFilter{
		Search:        q.Search,
		SearchBy:      searchBy,
		ReturnStatus:  q.ReturnStatus,
		AccountStatus: q.AccountStatus,
		Today:         DateOf(s.now()),
		Page:          q.window(),
	})
	if err != nil {
		s.log.Error("BorrowRecords: query failed", zap.Error(err))
		return nil, newError(KindInternal, "An error occurred while fetching borrow records.")
	}

	records := make([]BorrowRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, reconcile(r))
	}
	return &RecordPage{Records: records, TotalPages: q.TotalPages(total)}, nil
}

// reconcile picks the live or snapshot identity for a report row.
func reconcile(r repositories.RecordRow) BorrowRecord {
	rec := BorrowRecord{
		BorrowID:     r.ID,
		BorrowDate:   r.BorrowDate,
		DueDate:      r.DueDate,
		ReturnDate:   r.ReturnDate,
		UserID:       r.UserID,
		BookID:       r.BookID,
		BookTitle:    deref(r.BookTitle),
		BookAuthor:   deref(r.BookAuthor),
		BorrowStatus: r.DerivedStatus,
	}
	if r.UserID == nil || r.IsDeleted {
		rec.UserName = orDeleted(r.SnapshotName)
		rec.UserEmail = orDeleted(r.SnapshotEmail)
		rec.AccountStatus = models.AccountStatusDeleted
	} else {
		rec.UserName = deref(r.LiveName)
		rec.UserEmail = deref(r.LiveEmail)
		rec.AccountStatus = models.AccountStatusActive
	}
	return rec
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orDeleted(s *string) string {
	if s == nil || *s == "" {
		return models.DeletedAccountLabel
	}
	return *s
}

// UserHistory returns one page of the caller's own borrows, newest first.
func (s *reportService) UserHistory(ctx context.Context, userID uuid.UUID, q HistoryQuery) (*HistoryPage, error) {
	q.Pagination = NewPagination(q.Page, q.Limit)
	q.ReturnStatus = normalizeFilter(q.ReturnStatus)
	if err := validateSearchBy(q.SearchBy); err != nil {
		return nil, err
	}
	if err := validateReturnStatus(q.ReturnStatus); err != nil {
		return nil, err
	}

	rows, total, err := s.borrowRepo.ListHistory(s.db.WithContext(ctx), repositories.HistoryFilter{
		UserID:       userID,
		Search:       q.Search,
		SearchBy:     q.SearchBy,
		ReturnStatus: q.ReturnStatus,
		Today:        DateOf(s.now()),
		Page:         q.window(),
	})
	if err != nil {
		s.log.Error("UserHistory: query failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, newError(KindInternal, "An error occurred while fetching borrow history.")
	}

	history := make([]HistoryEntry, 0, len(rows))
	for _, r := range rows {
		history = append(history, HistoryEntry{
			BorrowID:   r.ID,
			UserName:   r.UserName,
			UserEmail:  r.UserEmail,
			BookID:     r.BookID,
			BookTitle:  r.BookTitle,
			BookAuthor: r.BookAuthor,
			BorrowDate: r.BorrowDate,
			ReturnDate: r.ReturnDate,
			DueDate:    r.DueDate.Format(DueDateLayout),
			Status:     r.Status,
		})
	}
	return &HistoryPage{
		History:     history,
		TotalPages:  q.TotalPages(total),
		CurrentPage: q.Page,
	}, nil
}
