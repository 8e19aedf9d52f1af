package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"librarydesk/internal/services"
)

type loginRequest struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

func (h *LibraryHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Email and password are required")
		return
	}

	session, err := h.Accounts.Login(c.Request.Context(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		h.respondError(c, "login", err)
		return
	}
	maxAge := int(h.Tokens.TTL(req.RememberMe).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, session.Token, maxAge, "/", "", false, false)
	c.JSON(http.StatusOK, gin.H{"message": "Login successful!", "token": session.Token})
}

func (h *LibraryHandler) profile(c *gin.Context) {
	principal, _ := principalFrom(c)
	profile, err := h.Accounts.Profile(c.Request.Context(), principal.ID)
	if err != nil {
		h.respondError(c, "profile", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type usersQuery struct {
	Search   string `form:"search"`
	SearchBy string `form:"searchBy"`
	Verified string `form:"verified"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

func (h *LibraryHandler) listUsers(c *gin.Context) {
	var q usersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	query := services.UserQuery{
		Search:     q.Search,
		ByEmail:    q.SearchBy == "email",
		Pagination: services.NewPagination(q.Page, q.Limit),
	}
	switch q.Verified {
	case "verified":
		query.Verified = boolPtr(true)
	case "not_verified":
		query.Verified = boolPtr(false)
	}

	page, err := h.Accounts.ListUsers(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, "listUsers", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type createUserRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	IsAdmin    bool   `json:"is_admin"`
	IsVerified bool   `json:"is_verified"`
}

func (h *LibraryHandler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "All fields are required")
		return
	}

	user, err := h.Accounts.CreateUser(c.Request.Context(), services.NewUser{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		IsAdmin:    req.IsAdmin,
		IsVerified: req.IsVerified,
	})
	if err != nil {
		h.respondError(c, "createUser", err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

type updateUserRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email" binding:"omitempty,email"`
	IsAdmin *bool   `json:"is_admin"`
}

func (h *LibraryHandler) updateUser(c *gin.Context) {
	userID, ok := pathID(c, "invalid user id")
	if !ok {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if _, err := h.Accounts.UpdateUser(c.Request.Context(), userID, services.UserUpdate{
		Name:    req.Name,
		Email:   req.Email,
		IsAdmin: req.IsAdmin,
	}); err != nil {
		h.respondError(c, "updateUser", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "User updated"})
}

func (h *LibraryHandler) deleteUser(c *gin.Context) {
	userID, ok := pathID(c, "invalid user id")
	if !ok {
		return
	}
	if err := h.Accounts.DeleteUser(c.Request.Context(), userID); err != nil {
		h.respondError(c, "deleteUser", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "User deleted"})
}
