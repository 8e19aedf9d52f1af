package services

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarydesk/internal/models"
)

func TestBorrowRecordsPagination(t *testing.T) {
	f := newFixture(t)
	user := f.addUser(t, "Ada", "ada@example.com", false)
	for i := 0; i < 15; i++ {
		book := f.addBook(t, fmt.Sprintf("Book %02d", i), "Author")
		_, err := f.lifecycle.BorrowBook(context.Background(), principalOf(user), book.ID)
		require.NoError(t, err)
		f.clock.now = f.clock.now.Add(time.Minute)
	}

	page, err := f.reports.BorrowRecords(context.Background(), RecordQuery{Pagination: NewPagination(2, 10)})
	require.NoError(t, err)
	assert.Len(t, page.Records, 5)
	assert.Equal(t, 2, page.TotalPages)

	first, err := f.reports.BorrowRecords(context.Background(), RecordQuery{Pagination: NewPagination(1, 10)})
	require.NoError(t, err)
	require.Len(t, first.Records, 10)
	assert.Equal(t, "Book 00", first.Records[0].BookTitle)
	assert.Equal(t, "Book 14", page.Records[4].BookTitle)

	beyond, err := f.reports.BorrowRecords(context.Background(), RecordQuery{Pagination: NewPagination(3, 10)})
	require.NoError(t, err)
	assert.Empty(t, beyond.Records)
	assert.Equal(t, 2, beyond.TotalPages)
}

func TestBorrowRecordsEmptyReport(t *testing.T) {
	f := newFixture(t)

	page, err := f.reports.BorrowRecords(context.Background(), RecordQuery{})
	require.NoError(t, err)
	assert.NotNil(t, page.Records)
	assert.Empty(t, page.Records)
	assert.Zero(t, page.TotalPages)
}

// seedStatuses leaves three borrows at day 20: one returned, one overdue and
// one still within its loan period.
func seedStatuses(t *testing.T, f *fixture) (returned, overdue, current *models.Book) {
	t.Helper()
	user := f.addUser(t, "Ada", "ada@example.com", false)
	returned = f.addBook(t, "Returned Book", "A. Writer")
	overdue = f.addBook(t, "Overdue Book", "B. Writer")
	current = f.addBook(t, "Current Book", "C. Writer")
	p := principalOf(user)

	r, err := f.lifecycle.BorrowBook(context.Background(), p, returned.ID)
	require.NoError(t, err)
	_, err = f.lifecycle.BorrowBook(context.Background(), p, overdue.ID)
	require.NoError(t, err)

	f.clock.advanceDays(3)
	_, err = f.lifecycle.ReturnBook(context.Background(), p, r.Borrow.ID)
	require.NoError(t, err)

	f.clock.advanceDays(7)
	_, err = f.lifecycle.BorrowBook(context.Background(), p, current.ID)
	require.NoError(t, err)

	f.clock.advanceDays(10)
	return returned, overdue, current
}

func statusByTitle(records []BorrowRecord) map[string]string {
	out := make(map[string]string, len(records))
	for _, r := range records {
		out[r.BookTitle] = r.BorrowStatus
	}
	return out
}

func TestBorrowRecordsDerivedStatus(t *testing.T) {
	f := newFixture(t)
	seedStatuses(t, f)

	page, err := f.reports.BorrowRecords(context.Background(), RecordQuery{})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Returned Book": models.DerivedStatusReturned,
		"Overdue Book":  models.DerivedStatusOverdue,
		"Current Book":  models.DerivedStatusNotReturned,
	}, statusByTitle(page.Records))

	for status, title := range map[string]string{
		"returned":     "Returned Book",
		"overdue":      "Overdue Book",
		"not_returned": "Current Book",
		"Overdue":      "Overdue Book",
	} {
		page, err := f.reports.BorrowRecords(context.Background(), RecordQuery{ReturnStatus: status})
		require.NoError(t, err, status)
		require.Len(t, page.Records, 1, status)
		assert.Equal(t, title, page.Records[0].BookTitle, status)
	}

	all, err := f.reports.BorrowRecords(context.Background(), RecordQuery{ReturnStatus: "All"})
	require.NoError(t, err)
	assert.Len(t, all.Records, 3)
}

func TestBorrowRecordsDueTodayIsNotOverdue(t *testing.T) {
	f := newFixture(t)
	user := f.addUser(t, "Ada", "ada@example.com", false)
	book := f.addBook(t, "Dune", "Frank Herbert")
	_, err := f.lifecycle.BorrowBook(context.Background(), principalOf(user), book.ID)
	require.NoError(t, err)

	f.clock.advanceDays(14)
	page, err := f.reports.BorrowRecords(context.Background(), RecordQuery{})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, models.DerivedStatusNotReturned, page.Records[0].BorrowStatus)

	overdue, err := f.reports.BorrowRecords(context.Background(), RecordQuery{ReturnStatus: "overdue"})
	require.NoError(t, err)
	assert.Empty(t, overdue.Records)

	f.clock.advanceDays(1)
	page, err = f.reports.BorrowRecords(context.Background(), RecordQuery{})
	require.NoError(t, err)
	assert.Equal(t, models.DerivedStatusOverdue, page.Records[0].BorrowStatus)
}

func TestBorrowRecordsDeletedAccountUsesSnapshot(t *testing.T) {
	f := newFixture(t)
	leaving := f.addUser(t, "Linus", "linus@example.com", false)
	staying := f.addUser(t, "Ada", "ada@example.com", false)
	b1 := f.addBook(t, "Dune", "Frank Herbert")
	b2 := f.addBook(t, "Emma", "Jane Austen")

	_, err := f.lifecycle.BorrowBook(context.Background(), principalOf(leaving), b1.ID)
	require.NoError(t, err)
	_, err = f.lifecycle.BorrowBook(context.Background(), principalOf(staying), b2.ID)
	require.NoError(t, err)

	require.NoError(t, f.accounts.DeleteUser(context.Background(), leaving.ID))

	deleted, err := f.reports.BorrowRecords(context.Background(), RecordQuery{AccountStatus: "deleted"})
	require.NoError(t, err)
	require.Len(t, deleted.Records, 1)
	rec := deleted.Records[0]
	assert.Equal(t, "Dune", rec.BookTitle)
	assert.Equal(t, "Linus", rec.UserName)
	assert.Equal(t, "linus@example.com", rec.UserEmail)
	assert.Equal(t, models.AccountStatusDeleted, rec.AccountStatus)
	assert.Nil(t, rec.UserID)

	active, err := f.reports.BorrowRecords(context.Background(), RecordQuery{AccountStatus: "active"})
	require.NoError(t, err)
	require.Len(t, active.Records, 1)
	assert.Equal(t, "Ada", active.Records[0].UserName)
	assert.Equal(t, models.AccountStatusActive, active.Records[0].AccountStatus)
}

func TestBorrowRecordsBorrowerSearchSpansLiveAndSnapshot(t *testing.T) {
	f := newFixture(t)
	gone := f.addUser(t, "Sam Gone", "sam.gone@example.com", false)
	here := f.addUser(t, "Sam Here", "sam.here@example.com", false)
	other := f.addUser(t, "Ada", "ada@example.com", false)
	for i, u := range []*models.User{gone, here, other} {
		book := f.addBook(t, fmt.Sprintf("Book %d", i), "Author")
		_, err := f.lifecycle.BorrowBook(context.Background(), principalOf(u), book.ID)
		require.NoError(t, err)
	}
	require.NoError(t, f.accounts.DeleteUser(context.Background(), gone.ID))

	byName, err := f.reports.BorrowRecords(context.Background(), RecordQuery{Search: "sam", SearchBy: "borrower"})
	require.NoError(t, err)
	names := []string{}
	for _, r := range byName.Records {
		names = append(names, r.UserName)
	}
	assert.ElementsMatch(t, []string{"Sam Gone", "Sam Here"}, names)

	byEmail, err := f.reports.BorrowRecords(context.Background(), RecordQuery{Search: "GONE@", SearchBy: "borrowerEmail"})
	require.NoError(t, err)
	require.Len(t, byEmail.Records, 1)
	assert.Equal(t, models.AccountStatusDeleted, byEmail.Records[0].AccountStatus)

	byBook, err := f.reports.BorrowRecords(context.Background(), RecordQuery{Search: "book 2", SearchBy: "book"})
	require.NoError(t, err)
	require.Len(t, byBook.Records, 1)
	assert.Equal(t, "Ada", byBook.Records[0].UserName)
}

func TestBorrowRecordsEmptySnapshotFallsBackToLabel(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "Dune", "Frank Herbert")
	orphan := &models.Borrow{
		BookID:     book.ID,
		IsDeleted:  true,
		BorrowDate: day0,
		DueDate:    DateOf(day0).AddDate(0, 0, 14),
		Status:     models.BorrowStatusNotReturned,
	}
	require.NoError(t, f.borrows.Create(f.db, orphan))

	page, err := f.reports.BorrowRecords(context.Background(), RecordQuery{})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, models.DeletedAccountLabel, page.Records[0].UserName)
	assert.Equal(t, models.DeletedAccountLabel, page.Records[0].UserEmail)
	assert.Equal(t, models.AccountStatusDeleted, page.Records[0].AccountStatus)
}

func TestBorrowRecordsIsReadOnly(t *testing.T) {
	f := newFixture(t)
	_, overdue, _ := seedStatuses(t, f)

	var before []models.Borrow
	require.NoError(t, f.db.Order("id").Find(&before).Error)

	_, err := f.reports.BorrowRecords(context.Background(), RecordQuery{ReturnStatus: "overdue"})
	require.NoError(t, err)

	var after []models.Borrow
	require.NoError(t, f.db.Order("id").Find(&after).Error)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Status, after[i].Status)
		assert.Equal(t, before[i].ReturnDate == nil, after[i].ReturnDate == nil)
	}
	assert.False(t, f.reloadBook(t, overdue.ID).Available)
}

func TestBorrowRecordsRejectsUnknownFilters(t *testing.T) {
	f := newFixture(t)

	_, err := f.reports.BorrowRecords(context.Background(), RecordQuery{ReturnStatus: "lost"})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = f.reports.BorrowRecords(context.Background(), RecordQuery{AccountStatus: "banned"})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = f.reports.BorrowRecords(context.Background(), RecordQuery{Search: "x", SearchBy: "isbn"})
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestUserHistoryIsScopedAndNewestFirst(t *testing.T) {
	f := newFixture(t)
	ada := f.addUser(t, "Ada", "ada@example.com", false)
	grace := f.addUser(t, "Grace", "grace@example.com", false)

	for _, title := range []string{"First", "Second", "Third"} {
		book := f.addBook(t, title, "Author")
		_, err := f.lifecycle.BorrowBook(context.Background(), principalOf(ada), book.ID)
		require.NoError(t, err)
		f.clock.advanceDays(1)
	}
	other := f.addBook(t, "Not Ada's", "Author")
	_, err := f.lifecycle.BorrowBook(context.Background(), principalOf(grace), other.ID)
	require.NoError(t, err)

	page, err := f.reports.UserHistory(context.Background(), ada.ID, HistoryQuery{Pagination: NewPagination(1, 2)})
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 1, page.CurrentPage)
	require.Len(t, page.History, 2)
	assert.Equal(t, "Third", page.History[0].BookTitle)
	assert.Equal(t, "Second", page.History[1].BookTitle)
	assert.Equal(t, "Ada", page.History[0].UserName)

	next, err := f.reports.UserHistory(context.Background(), ada.ID, HistoryQuery{Pagination: NewPagination(2, 2)})
	require.NoError(t, err)
	require.Len(t, next.History, 1)
	assert.Equal(t, "First", next.History[0].BookTitle)
	assert.Equal(t, 2, next.CurrentPage)

	none, err := f.reports.UserHistory(context.Background(), uuid.New(), HistoryQuery{})
	require.NoError(t, err)
	assert.Empty(t, none.History)
}

func TestUserHistoryStatusFlipsWithTime(t *testing.T) {
	f := newFixture(t)
	ada := f.addUser(t, "Ada", "ada@example.com", false)
	book := f.addBook(t, "Dune", "Frank Herbert")
	_, err := f.lifecycle.BorrowBook(context.Background(), principalOf(ada), book.ID)
	require.NoError(t, err)

	f.clock.advanceDays(10)
	page, err := f.reports.UserHistory(context.Background(), ada.ID, HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, page.History, 1)
	assert.Equal(t, models.DerivedStatusNotReturned, page.History[0].Status)
	assert.Equal(t, "2026-03-16", page.History[0].DueDate)

	f.clock.advanceDays(5)
	page, err = f.reports.UserHistory(context.Background(), ada.ID, HistoryQuery{ReturnStatus: "overdue"})
	require.NoError(t, err)
	require.Len(t, page.History, 1)
	assert.Equal(t, models.DerivedStatusOverdue, page.History[0].Status)
}

func TestUserHistorySearch(t *testing.T) {
	f := newFixture(t)
	ada := f.addUser(t, "Ada", "ada@example.com", false)
	for _, b := range [][2]string{{"Dune", "Frank Herbert"}, {"Emma", "Jane Austen"}} {
		book := f.addBook(t, b[0], b[1])
		_, err := f.lifecycle.BorrowBook(context.Background(), principalOf(ada), book.ID)
		require.NoError(t, err)
	}

	byAuthor, err := f.reports.UserHistory(context.Background(), ada.ID, HistoryQuery{Search: "austen", SearchBy: "author"})
	require.NoError(t, err)
	require.Len(t, byAuthor.History, 1)
	assert.Equal(t, "Emma", byAuthor.History[0].BookTitle)

	byBorrower, err := f.reports.UserHistory(context.Background(), ada.ID, HistoryQuery{Search: "ada", SearchBy: "borrower"})
	require.NoError(t, err)
	assert.Len(t, byBorrower.History, 2)
}

func TestPagination(t *testing.T) {
	assert.Equal(t, Pagination{Page: 1, Limit: DefaultPageSize}, NewPagination(0, 0))
	assert.Equal(t, Pagination{Page: 3, Limit: MaxPageSize}, NewPagination(3, 1000))

	p := NewPagination(1, 10)
	assert.Equal(t, 0, p.TotalPages(0))
	assert.Equal(t, 1, p.TotalPages(10))
	assert.Equal(t, 2, p.TotalPages(11))

	huge := NewPagination(math.MaxInt, 10)
	assert.Equal(t, math.MaxInt/10, huge.Page)
	assert.GreaterOrEqual(t, huge.window().Offset, 0)
}

func TestBorrowRecordsHugePageIsEmpty(t *testing.T) {
	f := newFixture(t)
	user := f.addUser(t, "Ada", "ada@example.com", false)
	book := f.addBook(t, "Dune", "Frank Herbert")
	_, err := f.lifecycle.BorrowBook(context.Background(), principalOf(user), book.ID)
	require.NoError(t, err)

	page, err := f.reports.BorrowRecords(context.Background(), RecordQuery{
		Pagination: Pagination{Page: math.MaxInt / 5, Limit: 10},
	})
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Equal(t, 1, page.TotalPages)

	history, err := f.reports.UserHistory(context.Background(), user.ID, HistoryQuery{
		Pagination: Pagination{Page: math.MaxInt / 5, Limit: 10},
	})
	require.NoError(t, err)
	assert.Empty(t, history.History)
}
