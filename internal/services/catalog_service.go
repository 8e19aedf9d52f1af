package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"librarydesk/internal/models"
	"librarydesk/internal/repositories"
)

// BookQuery lists the catalogue. Deleted and Available are nil when unfiltered.
type BookQuery struct {
	Search    string
	ByAuthor  bool
	Deleted   *bool
	Available *bool
	Pagination
}

type BookPage struct {
	Books       []models.Book `json:"books"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
	TotalBooks  int64         `json:"totalBooks"`
}

// CatalogService manages book records. Availability belongs to the borrow
// lifecycle and is never set from here.
type CatalogService interface {
	CreateBook(ctx context.Context, title, author string) (*models.Book, error)
	UpdateBook(ctx context.Context, id uuid.UUID, title, author *string) (*models.Book, error)
	DeleteBook(ctx context.Context, id uuid.UUID) error
	RestoreBook(ctx context.Context, id uuid.UUID) error
	ListBooks(ctx context.Context, q BookQuery) (*BookPage, error)
}

type catalogService struct {
	db       *gorm.DB
	bookRepo repositories.BookRepository
	log      *zap.Logger
}

func NewCatalogService(db *gorm.DB, bookRepo repositories.BookRepository, log *zap.Logger) CatalogService {
	return &catalogService{db: db, bookRepo: bookRepo, log: log.Named("catalog")}
}

func (s *catalogService) CreateBook(ctx context.Context, title, author string) (*models.Book, error) {
	title, author = strings.TrimSpace(title), strings.TrimSpace(author)
	if title == "" || author == "" {
		return nil, Validationf("Missing required fields: title and author")
	}
	book := &models.Book{Title: title, Author: author, Available: true}
	if err := s.bookRepo.Create(s.db.WithContext(ctx), book); err != nil {
		s.log.Error("CreateBook: insert failed", zap.Error(err))
		return nil, fmt.Errorf("create book: %w", err)
	}
	s.log.Info("CreateBook: created", zap.String("book_id", book.ID.String()), zap.String("title", book.Title))
	return book, nil
}

func (s *catalogService) UpdateBook(ctx context.Context, id uuid.UUID, title, author *string) (*models.Book, error) {
	var updated *models.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book, err := s.bookRepo.GetByIDForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		if title != nil {
			if strings.TrimSpace(*title) == "" {
				return Validationf("title must not be empty")
			}
			book.Title = strings.TrimSpace(*title)
		}
		if author != nil {
			if strings.TrimSpace(*author) == "" {
				return Validationf("author must not be empty")
			}
			book.Author = strings.TrimSpace(*author)
		}
		if err := s.bookRepo.UpdateDetails(tx, id, book.Title, book.Author); err != nil {
			return err
		}
		updated = book
		return nil
	})
	if err != nil {
		if KindOf(err) == KindInternal {
			s.log.Error("UpdateBook: transaction failed", zap.String("book_id", id.String()), zap.Error(err))
		}
		return nil, err
	}
	return updated, nil
}

func (s *catalogService) DeleteBook(ctx context.Context, id uuid.UUID) error {
	return s.setDeleted(ctx, id, true)
}

// RestoreBook clears the soft-delete flag; a book that is not deleted is
// reported as not found.
func (s *catalogService) RestoreBook(ctx context.Context, id uuid.UUID) error {
	return s.setDeleted(ctx, id, false)
}

func (s *catalogService) setDeleted(ctx context.Context, id uuid.UUID, deleted bool) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book, err := s.bookRepo.GetByIDForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if deleted {
					return ErrBookNotFound
				}
				return ErrBookNotDeleted
			}
			return err
		}
		if !deleted && !book.IsDeleted {
			return ErrBookNotDeleted
		}
		return s.bookRepo.SetDeleted(tx, id, deleted)
	})
	if err != nil {
		if KindOf(err) == KindInternal {
			s.log.Error("setDeleted: transaction failed", zap.String("book_id", id.String()), zap.Bool("deleted", deleted), zap.Error(err))
		}
		return err
	}
	s.log.Info("book soft-delete flag changed", zap.String("book_id", id.String()), zap.Bool("deleted", deleted))
	return nil
}

func (s *catalogService) ListBooks(ctx context.Context, q BookQuery) (*BookPage, error) {
	q.Pagination = NewPagination(q.Page, q.Limit)
	books, total, err := s.bookRepo.List(s.db.WithContext(ctx), repositories.BookFilter{
		Search:    q.Search,
		ByAuthor:  q.ByAuthor,
		Deleted:   q.Deleted,
		Available: q.Available,
		Page:      q.window(),
	})
	if err != nil {
		s.log.Error("ListBooks: query failed", zap.Error(err))
		return nil, err
	}
	if books == nil {
		books = []models.Book{}
	}
	return &BookPage{
		Books:       books,
		TotalPages:  q.TotalPages(total),
		CurrentPage: q.Page,
		TotalBooks:  total,
	}, nil
}
