package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"librarydesk/internal/auth"
	"librarydesk/internal/models"
	"librarydesk/internal/repositories"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) advanceDays(days int) { c.now = c.now.AddDate(0, 0, days) }

// day0 is the fixed start of every time-dependent scenario.
var day0 = time.Date(2026, time.March, 2, 10, 30, 0, 0, time.UTC)

type fixture struct {
	db        *gorm.DB
	clock     *testClock
	users     repositories.UserRepository
	books     repositories.BookRepository
	borrows   repositories.BorrowRepository
	lifecycle BorrowService
	reports   ReportService
	accounts  AccountService
	catalog   CatalogService
	tokens    *auth.TokenManager
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "library.db") + "?_foreign_keys=1&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	clock := &testClock{now: day0}
	log := zap.NewNop()

	f := &fixture{
		db:      db,
		clock:   clock,
		users:   repositories.NewUserRepository(db),
		books:   repositories.NewBookRepository(db),
		borrows: repositories.NewBorrowRepository(db),
		tokens:  auth.NewTokenManager("test-secret", 30*time.Minute, 7*24*time.Hour),
	}
	f.lifecycle = NewBorrowService(db, f.users, f.books, f.borrows, log, DefaultLoanPeriodDays, clock.Now)
	f.reports = NewReportService(db, f.borrows, log, clock.Now)
	f.accounts = NewAccountService(db, f.users, f.borrows, f.tokens, log)
	f.catalog = NewCatalogService(db, f.books, log)
	return f
}

func (f *fixture) addUser(t *testing.T, name, email string, admin bool) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: email, Password: "unused", IsVerified: true, IsAdmin: admin}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func (f *fixture) addBook(t *testing.T, title, author string) *models.Book {
	t.Helper()
	b := &models.Book{Title: title, Author: author, Available: true}
	require.NoError(t, f.db.Create(b).Error)
	return b
}

func (f *fixture) reloadBook(t *testing.T, id interface{}) models.Book {
	t.Helper()
	var b models.Book
	require.NoError(t, f.db.First(&b, "id = ?", id).Error)
	return b
}

func (f *fixture) reloadBorrow(t *testing.T, id interface{}) models.Borrow {
	t.Helper()
	var b models.Borrow
	require.NoError(t, f.db.First(&b, "id = ?", id).Error)
	return b
}

func (f *fixture) countBorrows(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Borrow{}).Count(&n).Error)
	return n
}

func principalOf(u *models.User) auth.Principal {
	return auth.Principal{ID: u.ID, Email: u.Email, IsAdmin: u.IsAdmin}
}
