package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"librarydesk/internal/services"
)

type createBookRequest struct {
	Title  string `json:"title" binding:"required"`
	Author string `json:"author" binding:"required"`
}

func (h *LibraryHandler) createBook(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing required fields: title and author")
		return
	}

	book, err := h.Catalog.CreateBook(c.Request.Context(), req.Title, req.Author)
	if err != nil {
		h.respondError(c, "createBook", err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

type updateBookRequest struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
}

func (h *LibraryHandler) updateBook(c *gin.Context) {
	bookID, ok := pathID(c, "invalid book id")
	if !ok {
		return
	}
	var req updateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	book, err := h.Catalog.UpdateBook(c.Request.Context(), bookID, req.Title, req.Author)
	if err != nil {
		h.respondError(c, "updateBook", err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *LibraryHandler) deleteBook(c *gin.Context) {
	bookID, ok := pathID(c, "invalid book id")
	if !ok {
		return
	}
	if err := h.Catalog.DeleteBook(c.Request.Context(), bookID); err != nil {
		h.respondError(c, "deleteBook", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Book deleted"})
}

func (h *LibraryHandler) restoreBook(c *gin.Context) {
	bookID, ok := pathID(c, "invalid book id")
	if !ok {
		return
	}
	if err := h.Catalog.RestoreBook(c.Request.Context(), bookID); err != nil {
		h.respondError(c, "restoreBook", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Book restored successfully"})
}

type adminBooksQuery struct {
	SearchQuery  string `form:"search_query"`
	SearchBy     string `form:"search_by"`
	FilterStatus string `form:"filter_status"`
	Page         int    `form:"page"`
	Limit        int    `form:"limit"`
}

func (h *LibraryHandler) listBooks(c *gin.Context) {
	var q adminBooksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	query := services.BookQuery{
		Search:     q.SearchQuery,
		ByAuthor:   q.SearchBy == "author",
		Pagination: services.NewPagination(q.Page, q.Limit),
	}
	switch q.FilterStatus {
	case "deleted":
		query.Deleted = boolPtr(true)
	case "not_deleted":
		query.Deleted = boolPtr(false)
	}

	page, err := h.Catalog.ListBooks(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, "listBooks", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": page.Books, "totalPages": page.TotalPages})
}

type availableBooksQuery struct {
	SearchQuery  string `form:"searchQuery"`
	SearchBy     string `form:"searchBy"`
	FilterStatus string `form:"filterStatus"`
	Page         int    `form:"page"`
	Limit        int    `form:"limit"`
}

// listAvailableBooks is the public catalogue: soft-deleted books never appear.
func (h *LibraryHandler) listAvailableBooks(c *gin.Context) {
	var q availableBooksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	query := services.BookQuery{
		ByAuthor:   q.SearchBy == "author",
		Deleted:    boolPtr(false),
		Pagination: services.NewPagination(q.Page, q.Limit),
	}
	if q.SearchBy == "title" || q.SearchBy == "author" {
		query.Search = q.SearchQuery
	}
	switch q.FilterStatus {
	case "available":
		query.Available = boolPtr(true)
	case "not_available":
		query.Available = boolPtr(false)
	}

	page, err := h.Catalog.ListBooks(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, "listAvailableBooks", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func pathID(c *gin.Context, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, msg)
		return uuid.Nil, false
	}
	return id, true
}

func boolPtr(b bool) *bool { return &b }
