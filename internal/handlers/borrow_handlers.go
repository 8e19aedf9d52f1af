package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"librarydesk/internal/services"
)

type borrowRequest struct {
	BookID string `json:"book_id" binding:"required"`
}

type borrowResponse struct {
	Message  string    `json:"message"`
	DueDate  string    `json:"due_date"`
	BorrowID uuid.UUID `json:"borrow_id"`
}

func (h *LibraryHandler) borrowBook(c *gin.Context) {
	principal, _ := principalFrom(c)

	var req borrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing book_id")
		return
	}
	bookID, err := uuid.Parse(req.BookID)
	if err != nil {
		badRequest(c, "invalid book id")
		return
	}

	receipt, err := h.Borrows.BorrowBook(c.Request.Context(), principal, bookID)
	if err != nil {
		h.respondError(c, "borrowBook", err)
		return
	}
	c.JSON(http.StatusOK, borrowResponse{
		Message:  fmt.Sprintf("You have borrowed '%s'.", receipt.BookTitle),
		DueDate:  receipt.Borrow.DueDate.Format(services.DueDateLayout),
		BorrowID: receipt.Borrow.ID,
	})
}

type returnRequest struct {
	BorrowID string `json:"borrow_id" binding:"required"`
}

type returnResponse struct {
	Msg    string `json:"msg"`
	Status string `json:"status"`
}

func (h *LibraryHandler) returnBook(c *gin.Context) {
	principal, _ := principalFrom(c)

	var req returnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing borrow_id")
		return
	}
	borrowID, err := uuid.Parse(req.BorrowID)
	if err != nil {
		badRequest(c, "invalid borrow id")
		return
	}

	receipt, err := h.Borrows.ReturnBook(c.Request.Context(), principal, borrowID)
	if err != nil {
		h.respondError(c, "returnBook", err)
		return
	}
	c.JSON(http.StatusOK, returnResponse{
		Msg:    fmt.Sprintf("Book '%s' returned successfully", receipt.BookTitle),
		Status: receipt.Borrow.Status,
	})
}

type recordsQuery struct {
	SearchQuery   string `form:"searchQuery"`
	SearchBy      string `form:"searchBy"`
	ReturnStatus  string `form:"returnStatus"`
	AccountStatus string `form:"accountStatus"`
	Page          int    `form:"page"`
	Limit         int    `form:"limit"`
}

func (h *LibraryHandler) borrowRecords(c *gin.Context) {
	var q recordsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	page, err := h.Reports.BorrowRecords(c.Request.Context(), services.RecordQuery{
		Search:        strings.TrimSpace(q.SearchQuery),
		SearchBy:      q.SearchBy,
		ReturnStatus:  q.ReturnStatus,
		AccountStatus: q.AccountStatus,
		Pagination:    services.NewPagination(q.Page, q.Limit),
	})
	if err != nil {
		h.respondError(c, "borrowRecords", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type historyQuery struct {
	Search       string `form:"search"`
	SearchBy     string `form:"search_by"`
	ReturnStatus string `form:"return_status"`
	Page         int    `form:"page"`
	Limit        int    `form:"limit"`
}

// borrowHistory serves the caller's own history; the user id comes from the
// token, never from the query.
func (h *LibraryHandler) borrowHistory(c *gin.Context) {
	principal, _ := principalFrom(c)

	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	page, err := h.Reports.UserHistory(c.Request.Context(), principal.ID, services.HistoryQuery{
		Search:       strings.TrimSpace(q.Search),
		SearchBy:     q.SearchBy,
		ReturnStatus: q.ReturnStatus,
		Pagination:   services.NewPagination(q.Page, q.Limit),
	})
	if err != nil {
		h.respondError(c, "borrowHistory", err)
		return
	}
	c.JSON(http.StatusOK, page)
}
