package handlers

import (
	"net/http"

	"challenges/services"

	"github.com/gin-gonic/gin"
)

type ReactionHandler struct {
	reactions *services.ReactionService
}

func NewReactionHandler(reactions *services.ReactionService) *ReactionHandler {
	return &ReactionHandler{reactions: reactions}
}

type CommentRequest struct {
	Author  string `json:"author" form:"author"`
	Content string `json:"content" form:"content"`
}

// ToggleLike expects JWTAuthMiddleware to have set userId.
func (h *ReactionHandler) ToggleLike(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.reactions.ToggleLike(ctx, c.Param("id"), c.GetString("userId"))
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Post unliked"
	if result.ToggledOn {
		message = "Post liked"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   message,
		"likes":     result.Likes,
		"toggledOn": result.ToggledOn,
	})
}

func (h *ReactionHandler) AddComment(c *gin.Context) {
	var req CommentRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	comment, err := h.reactions.AddComment(ctx, c.Param("id"), req.Author, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Comment added successfully",
		"comment": comment,
	})
}
