package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"challenges/models"
	"challenges/notify"
	"challenges/services"

	"github.com/gin-gonic/gin"
)

const maxImageBytes = 10 << 20

type PostHandler struct {
	posts *services.PostService
}

func NewPostHandler(posts *services.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

func (h *PostHandler) CreatePost(c *gin.Context) {
	var (
		post  *models.Post
		image []byte
		err   error
	)
	if isMultipart(c) {
		post = postFromForm(c)
		image, err = readImage(c)
	} else {
		post = &models.Post{}
		err = c.ShouldBindJSON(post)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}

	created, report, err := h.posts.CreatePost(c.Request.Context(), post, image)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"message": "Post created successfully",
		"post":    created,
		"notification": gin.H{
			"outcome": report.Outcome,
			"sent":    report.Sent,
			"failed":  len(report.Failures),
		},
	}
	switch report.Outcome {
	case notify.OutcomeFailed, notify.OutcomePartiallySent:
		resp["warning"] = "Some subscribers could not be notified"
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *PostHandler) ListPosts(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	posts, err := h.posts.ListPosts(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(posts) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "No posts found",
			"message": "There are no posts yet",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Posts fetched successfully",
		"posts":   posts,
	})
}

func (h *PostHandler) GetPost(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := h.posts.GetPost(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

func (h *PostHandler) UpdatePost(c *gin.Context) {
	var (
		patch *models.PostPatch
		image []byte
		err   error
	)
	if isMultipart(c) {
		patch = patchFromForm(c)
		image, err = readImage(c)
	} else {
		patch = &models.PostPatch{}
		err = c.ShouldBindJSON(patch)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}

	post, err := h.posts.UpdatePost(c.Request.Context(), c.Param("id"), patch, image)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Post updated successfully",
		"post":    post,
	})
}

func (h *PostHandler) DeletePost(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.posts.DeletePost(ctx, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// readImage returns the optional "image" file of a multipart request.
func readImage(c *gin.Context) ([]byte, error) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if fh.Size > maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxImageBytes))
}

func postTextFields(p *models.Post) map[string]*string {
	return map[string]*string{
		"title":              &p.Title,
		"author":             &p.Author,
		"headline":           &p.Headline,
		"content":            &p.Content,
		"deadline":           &p.Deadline,
		"duration":           &p.Duration,
		"prize":              &p.Prize,
		"projectDescription": &p.ProjectDescription,
		"projectTasks":       &p.ProjectTasks,
		"contactEmail":       &p.ContactEmail,
		"projectBrief":       &p.ProjectBrief,
		"seniority":          &p.Seniority,
		"status":             &p.Status,
		"timeline":           &p.Timeline,
	}
}

func patchTextFields(p *models.PostPatch) map[string]**string {
	return map[string]**string{
		"title":              &p.Title,
		"author":             &p.Author,
		"headline":           &p.Headline,
		"content":            &p.Content,
		"deadline":           &p.Deadline,
		"duration":           &p.Duration,
		"prize":              &p.Prize,
		"projectDescription": &p.ProjectDescription,
		"projectTasks":       &p.ProjectTasks,
		"contactEmail":       &p.ContactEmail,
		"projectBrief":       &p.ProjectBrief,
		"seniority":          &p.Seniority,
		"status":             &p.Status,
		"timeline":           &p.Timeline,
	}
}

func postFromForm(c *gin.Context) *models.Post {
	post := &models.Post{Kind: models.Kind(c.PostForm("kind"))}
	for name, dst := range postTextFields(post) {
		*dst = c.PostForm(name)
	}
	post.Skills, _ = formList(c, "skills")
	return post
}

func patchFromForm(c *gin.Context) *models.PostPatch {
	patch := &models.PostPatch{}
	for name, dst := range patchTextFields(patch) {
		if v, ok := c.GetPostForm(name); ok {
			*dst = &v
		}
	}
	if skills, ok := formList(c, "skills"); ok {
		patch.Skills = &skills
	}
	return patch
}

// formList reads a repeated form field. A single comma separated value is
// split as well.
func formList(c *gin.Context, name string) ([]string, bool) {
	values, ok := c.GetPostFormArray(name)
	if !ok {
		return nil, false
	}
	if len(values) == 1 && strings.Contains(values[0], ",") {
		values = strings.Split(values[0], ",")
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.TrimSpace(v))
	}
	return out, true
}
