package handlers

import (
	"net/http"

	"github.com/gemcommunity/blog/backend/internal/models"
	"github.com/gemcommunity/blog/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// BookmarkHandler handles bookmark HTTP requests
type BookmarkHandler struct {
	bookmarkRepository repositories.BookmarkRepository
	postRepository     repositories.PostRepository
}

// NewBookmarkHandler creates a new BookmarkHandler
func NewBookmarkHandler(bookmarkRepo repositories.BookmarkRepository, postRepo repositories.PostRepository) *BookmarkHandler {
	return &BookmarkHandler{
		bookmarkRepository: bookmarkRepo,
		postRepository:     postRepo,
	}
}

// RegisterBookmarkRoutes registers bookmark routes
func (h *BookmarkHandler) RegisterBookmarkRoutes(g *echo.Group) {
	g.POST("/posts/:id/bookmark", h.BookmarkPost)
	g.DELETE("/posts/:id/bookmark", h.UnbookmarkPost)
	g.GET("/bookmarks", h.GetBookmarks)
}

// BookmarkPost saves a post for the authenticated user
func (h *BookmarkHandler) BookmarkPost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	postID := c.Param("id")

	// Verify post exists
	_, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Post not found")
	}

	// Check if already bookmarked
	isBookmarked, _ := h.bookmarkRepository.IsBookmarked(currentUserID, postID)
	if isBookmarked {
		return echo.NewHTTPError(http.StatusConflict, "Post already bookmarked")
	}

	bookmark := &models.Bookmark{
		UserID: currentUserID,
		PostID: postID,
	}

	if err := h.bookmarkRepository.SaveBookmark(bookmark); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"bookmarked": true}})
}

// UnbookmarkPost removes a post from the user's bookmarks
func (h *BookmarkHandler) UnbookmarkPost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	postID := c.Param("id")

	if err := h.bookmarkRepository.RemoveBookmark(currentUserID, postID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"bookmarked": false}})
}

// GetBookmarks lists the user's bookmarks, newest first
func (h *BookmarkHandler) GetBookmarks(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	bookmarks, err := h.bookmarkRepository.GetBookmarksByUser(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"bookmarks": bookmarks}})
}
