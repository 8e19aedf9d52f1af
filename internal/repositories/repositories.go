package repositories

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"librarydesk/internal/models"
)

type UserRepository interface {
	Create(db *gorm.DB, user *models.User) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error)
	GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.User, error)
	GetByEmail(db *gorm.DB, email string) (*models.User, error)
	Save(db *gorm.DB, user *models.User) error
	Delete(db *gorm.DB, id uuid.UUID) error
	List(db *gorm.DB, filter UserFilter) ([]models.User, int64, error)
}

type BookRepository interface {
	Create(db *gorm.DB, book *models.Book) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	UpdateDetails(db *gorm.DB, id uuid.UUID, title, author string) error
	SetDeleted(db *gorm.DB, id uuid.UUID, deleted bool) error
	MarkUnavailable(db *gorm.DB, id uuid.UUID) (bool, error)
	MarkAvailable(db *gorm.DB, id uuid.UUID) error
	List(db *gorm.DB, filter BookFilter) ([]models.Book, int64, error)
}

type BorrowRepository interface {
	Create(db *gorm.DB, borrow *models.Borrow) error
	GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Borrow, error)
	MarkReturned(db *gorm.DB, id uuid.UUID, returnDate time.Time, status string) (bool, error)
	SnapshotAndDetachUser(db *gorm.DB, userID uuid.UUID, name, email string) (int64, error)
	ListRecords(db *gorm.DB, filter RecordFilter) ([]RecordRow, int64, error)
	ListHistory(db *gorm.DB, filter HistoryFilter) ([]HistoryRow, int64, error)
}

// Page is an offset/limit window applied after filtering.
type Page struct {
	Offset int
	Limit  int
}

func (p Page) apply(db *gorm.DB) *gorm.DB {
	return db.Offset(p.Offset).Limit(p.Limit)
}

// likePattern builds a case-insensitive substring pattern for LOWER(col) LIKE ?.
func likePattern(s string) string {
	return "%" + strings.ToLower(s) + "%"
}

// concrete implementations

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(db *gorm.DB, user *models.User) error {
	if db == nil {
		db = r.db
	}
	return db.Create(user).Error
}

func (r *userRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(db *gorm.DB, email string) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Save(db *gorm.DB, user *models.User) error {
	if db == nil {
		db = r.db
	}
	return db.Save(user).Error
}

func (r *userRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.User{}, "id = ?", id).Error
}

// UserFilter narrows the admin user listing.
type UserFilter struct {
	Search   string
	ByEmail  bool
	Verified *bool
	Page
}

func (r *userRepository) List(db *gorm.DB, filter UserFilter) ([]models.User, int64, error) {
	if db == nil {
		db = r.db
	}
	q := db.Model(&models.User{})
	if filter.Search != "" {
		col := "name"
		if filter.ByEmail {
			col = "email"
		}
		q = q.Where("LOWER("+col+") LIKE ?", likePattern(filter.Search))
	}
	if filter.Verified != nil {
		q = q.Where("is_verified = ?", *filter.Verified)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	if err := filter.apply(q.Order("name ASC, id ASC")).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Create(book).Error
}

func (r *bookRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	if err := db.First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&book, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) UpdateDetails(db *gorm.DB, id uuid.UUID, title, author string) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Book{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"title":  title,
			"author": author,
		}).Error
}

func (r *bookRepository) SetDeleted(db *gorm.DB, id uuid.UUID, deleted bool) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Book{}).
		Where("id = ?", id).
		Update("is_deleted", deleted).
		Error
}

// MarkUnavailable flips available from true to false and reports whether this
// call won the flip. A false result means the book was already out.
func (r *bookRepository) MarkUnavailable(db *gorm.DB, id uuid.UUID) (bool, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Book{}).
		Where("id = ? AND available = ?", id, true).
		Update("available", false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *bookRepository) MarkAvailable(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Book{}).
		Where("id = ?", id).
		Update("available", true).
		Error
}

// BookFilter narrows catalogue listings. Nil pointers leave a dimension unfiltered.
type BookFilter struct {
	Search    string
	ByAuthor  bool
	Deleted   *bool
	Available *bool
	Page
}

func (r *bookRepository) List(db *gorm.DB, filter BookFilter) ([]models.Book, int64, error) {
	if db == nil {
		db = r.db
	}
	q := db.Model(&models.Book{})
	if filter.Search != "" {
		col := "title"
		if filter.ByAuthor {
			col = "author"
		}
		q = q.Where("LOWER("+col+") LIKE ?", likePattern(filter.Search))
	}
	if filter.Deleted != nil {
		q = q.Where("is_deleted = ?", *filter.Deleted)
	}
	if filter.Available != nil {
		q = q.Where("available = ?", *filter.Available)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var books []models.Book
	if err := filter.apply(q.Order("title ASC, id ASC")).Find(&books).Error; err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

type borrowRepository struct {
	db *gorm.DB
}

func NewBorrowRepository(db *gorm.DB) BorrowRepository {
	return &borrowRepository{db: db}
}

func (r *borrowRepository) Create(db *gorm.DB, borrow *models.Borrow) error {
	if db == nil {
		db = r.db
	}
	return db.Omit(clause.Associations).Create(borrow).Error
}

func (r *borrowRepository) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Borrow, error) {
	if db == nil {
		db = r.db
	}
	var borrow models.Borrow
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&borrow, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &borrow, nil
}

// MarkReturned sets return_date and the terminal status, only if the borrow is
// still open. It reports whether a row was updated.
func (r *borrowRepository) MarkReturned(db *gorm.DB, id uuid.UUID, returnDate time.Time, status string) (bool, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Borrow{}).
		Where("id = ? AND return_date IS NULL", id).
		Updates(map[string]interface{}{
			"return_date": returnDate,
			"status":      status,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SnapshotAndDetachUser copies the departing account's identity into every
// borrow it owns, flags those rows as belonging to a deleted account and
// clears user_id. It is the only place the snapshot columns are written.
func (r *borrowRepository) SnapshotAndDetachUser(db *gorm.DB, userID uuid.UUID, name, email string) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Borrow{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"user_name":  name,
			"user_email": email,
			"is_deleted": true,
			"user_id":    nil,
		})
	return res.RowsAffected, res.Error
}
