package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"librarydesk/internal/auth"
	"librarydesk/internal/metrics"
	"librarydesk/internal/models"
	"librarydesk/internal/repositories"
)

// DefaultLoanPeriodDays is the number of days between borrow and due date.
const DefaultLoanPeriodDays = 14

// DueDateLayout is the wire format of due dates in borrow confirmations.
const DueDateLayout = "2006-01-02"

// Clock returns the current instant. Services take one so tests can pin time.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DerivedStatus computes the display status of a borrow from its dates.
// A record is overdue only once its due date is strictly before today's date.
func DerivedStatus(returnDate *time.Time, dueDate, now time.Time) string {
	if returnDate != nil {
		return models.DerivedStatusReturned
	}
	if DateOf(dueDate).Before(DateOf(now)) {
		return models.DerivedStatusOverdue
	}
	return models.DerivedStatusNotReturned
}

// ReturnStatus is the terminal status persisted when a borrow is closed.
// Returning on the due date itself is on time.
func ReturnStatus(returnDate, dueDate time.Time) string {
	if DateOf(returnDate).After(DateOf(dueDate)) {
		return models.BorrowStatusReturnedLate
	}
	return models.BorrowStatusReturned
}

// BorrowReceipt describes a borrow or return that just committed.
type BorrowReceipt struct {
	Borrow    *models.Borrow
	BookTitle string
}

// BorrowService is the borrow lifecycle: borrow, then exactly one return.
type BorrowService interface {
	BorrowBook(ctx context.Context, principal auth.Principal, bookID uuid.UUID) (*BorrowReceipt, error)
	ReturnBook(ctx context.Context, principal auth.Principal, borrowID uuid.UUID) (*BorrowReceipt, error)
}

type borrowService struct {
	db             *gorm.DB
	userRepo       repositories.UserRepository
	bookRepo       repositories.BookRepository
	borrowRepo     repositories.BorrowRepository
	log            *zap.Logger
	loanPeriodDays int
	now            Clock
}

// NewBorrowService wires up the lifecycle engine. A zero loan period selects
// DefaultLoanPeriodDays and a nil clock selects SystemClock.
func NewBorrowService(
	db *gorm.DB,
	userRepo repositories.UserRepository,
	bookRepo repositories.BookRepository,
	borrowRepo repositories.BorrowRepository,
	log *zap.Logger,
	loanPeriodDays int,
	clock Clock,
) BorrowService {
	if loanPeriodDays <= 0 {
		loanPeriodDays = DefaultLoanPeriodDays
	}
	if clock == nil {
		clock = SystemClock
	}
	return &borrowService{
		db:             db,
		userRepo:       userRepo,
		bookRepo:       bookRepo,
		borrowRepo:     borrowRepo,
		log:            log.Named("borrow"),
		loanPeriodDays: loanPeriodDays,
		now:            clock,
	}
}

// ─── Borrow ───────────────────────────────────────────────────────────────────

// BorrowBook locks the book row, flips it unavailable and appends a borrow in
// one transaction. Two concurrent borrowers of the same book serialize on the
// row lock; the conditional availability update rejects the loser even where
// the storage engine ignores FOR UPDATE.
func (s *borrowService) BorrowBook(ctx context.Context, principal auth.Principal, bookID uuid.UUID) (*BorrowReceipt, error) {
	if principal.IsAdmin {
		s.log.Warn("BorrowBook: admin attempted to borrow", zap.String("user_id", principal.ID.String()))
		return nil, ErrForbiddenRole
	}

	var receipt *BorrowReceipt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A token can outlive the account it was issued for.
		if _, err := s.userRepo.GetByID(tx, principal.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("load user: %w", err)
		}

		book, err := s.bookRepo.GetByIDForUpdate(tx, bookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return fmt.Errorf("lock book: %w", err)
		}
		if book.IsDeleted {
			return ErrBookNotFound
		}
		if !book.Available {
			return ErrBookUnavailable
		}

		flipped, err := s.bookRepo.MarkUnavailable(tx, bookID)
		if err != nil {
			return fmt.Errorf("mark book unavailable: %w", err)
		}
		if !flipped {
			return ErrBookUnavailable
		}

		now := s.now().UTC()
		userID := principal.ID
		borrow := &models.Borrow{
			UserID:     &userID,
			BookID:     bookID,
			BorrowDate: now,
			DueDate:    DateOf(now).AddDate(0, 0, s.loanPeriodDays),
			Status:     models.BorrowStatusNotReturned,
		}
		if err := s.borrowRepo.Create(tx, borrow); err != nil {
			return fmt.Errorf("create borrow: %w", err)
		}
		receipt = &BorrowReceipt{Borrow: borrow, BookTitle: book.Title}
		return nil
	})
	if err != nil {
		if KindOf(err) == KindInternal {
			s.log.Error("BorrowBook: transaction failed",
				zap.String("book_id", bookID.String()),
				zap.String("user_id", principal.ID.String()),
				zap.Error(err))
		} else {
			s.log.Info("BorrowBook: rejected",
				zap.String("book_id", bookID.String()),
				zap.String("user_id", principal.ID.String()),
				zap.String("reason", err.Error()))
		}
		return nil, err
	}

	metrics.BorrowsTotal.Inc()
	s.log.Info("BorrowBook: borrow created",
		zap.String("borrow_id", receipt.Borrow.ID.String()),
		zap.String("book_id", bookID.String()),
		zap.String("user_id", principal.ID.String()),
		zap.String("due_date", receipt.Borrow.DueDate.Format(DueDateLayout)))
	return receipt, nil
}

// ─── Return ───────────────────────────────────────────────────────────────────

// ReturnBook closes an open borrow owned by the caller and releases the book,
// both in one transaction. A borrow owned by someone else is reported as not
// found.
func (s *borrowService) ReturnBook(ctx context.Context, principal auth.Principal, borrowID uuid.UUID) (*BorrowReceipt, error) {
	var receipt *BorrowReceipt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		borrow, err := s.borrowRepo.GetByIDForUpdate(tx, borrowID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBorrowNotFound
			}
			return fmt.Errorf("lock borrow: %w", err)
		}
		if borrow.UserID == nil || *borrow.UserID != principal.ID {
			return ErrBorrowNotFound
		}
		if borrow.ReturnDate != nil {
			return ErrAlreadyReturned
		}

		returnDate := DateOf(s.now())
		status := ReturnStatus(returnDate, borrow.DueDate)
		closed, err := s.borrowRepo.MarkReturned(tx, borrow.ID, returnDate, status)
		if err != nil {
			return fmt.Errorf("mark borrow returned: %w", err)
		}
		if !closed {
			return ErrAlreadyReturned
		}
		if err := s.bookRepo.MarkAvailable(tx, borrow.BookID); err != nil {
			return fmt.Errorf("mark book available: %w", err)
		}

		book, err := s.bookRepo.GetByID(tx, borrow.BookID)
		if err != nil {
			return fmt.Errorf("load book: %w", err)
		}

		borrow.ReturnDate = &returnDate
		borrow.Status = status
		receipt = &BorrowReceipt{Borrow: borrow, BookTitle: book.Title}
		return nil
	})
	if err != nil {
		if KindOf(err) == KindInternal {
			s.log.Error("ReturnBook: transaction failed",
				zap.String("borrow_id", borrowID.String()),
				zap.String("user_id", principal.ID.String()),
				zap.Error(err))
		} else {
			s.log.Info("ReturnBook: rejected",
				zap.String("borrow_id", borrowID.String()),
				zap.String("user_id", principal.ID.String()),
				zap.String("reason", err.Error()))
		}
		return nil, err
	}

	metrics.ReturnsTotal.WithLabelValues(receipt.Borrow.Status).Inc()
	s.log.Info("ReturnBook: borrow closed",
		zap.String("borrow_id", borrowID.String()),
		zap.String("book_id", receipt.Borrow.BookID.String()),
		zap.String("status", receipt.Borrow.Status))
	return receipt, nil
}
