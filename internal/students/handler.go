package students

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"academy-backend/internal/platform/apperr"
)

const photoField = "profile_photo"

type Handler struct {
	svc      *Service
	maxPhoto int64
}

// RegisterRoutes mounts /students. writeGuards run in front of POST and DELETE.
func RegisterRoutes(r gin.IRoutes, svc *Service, writeGuards ...gin.HandlerFunc) {
	h := &Handler{svc: svc, maxPhoto: svc.maxPhoto}
	write := func(fn gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, writeGuards...), fn)
	}
	r.GET("/students", h.List)
	r.GET("/students/:id", h.Get)
	r.POST("/students", write(h.Create)...)
	r.POST("/students/:id", write(h.Update)...)
	r.DELETE("/students/:id", write(h.Delete)...)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		apperr.Respond(c, apperr.Invalid("User ID is missing or invalid."))
		return 0, false
	}
	return id, true
}

// readPhoto returns nil when no file was sent. Oversized files are rejected from
// the multipart header before their bytes are read.
func (h *Handler) readPhoto(c *gin.Context) (*Upload, error) {
	fh, err := c.FormFile(photoField)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Invalid("Invalid upload")
	}
	if fh.Size == 0 {
		return nil, nil
	}
	if h.maxPhoto > 0 && fh.Size > h.maxPhoto {
		return nil, tooLarge(h.maxPhoto)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, apperr.Internal("File upload failed.", err)
	}
	defer f.Close()

	var r io.Reader = f
	if h.maxPhoto > 0 {
		r = io.LimitReader(f, h.maxPhoto+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperr.Internal("File upload failed.", err)
	}
	return &Upload{Filename: fh.Filename, Data: data}, nil
}

func formInt(c *gin.Context, key string) int64 {
	n, _ := strconv.ParseInt(c.PostForm(key), 10, 64)
	return n
}

func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	res, err := h.svc.List(c.Request.Context(), page)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"students":    res.Students,
		"page":        res.Page,
		"per_page":    res.PerPage,
		"total":       res.Total,
		"total_pages": res.TotalPages,
	})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	st, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "student": st})
}

func (h *Handler) Create(c *gin.Context) {
	photo, err := h.readPhoto(c)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	st, err := h.svc.Create(c.Request.Context(), CreateInput{
		Name:     c.PostForm("name"),
		Email:    c.PostForm("email"),
		Password: c.PostForm("password"),
		BatchID:  formInt(c, "batch_id"),
		Photo:    photo,
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Student created successfully.", "student": st})
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	photo, err := h.readPhoto(c)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	st, err := h.svc.Update(c.Request.Context(), id, UpdateInput{
		Name:    c.PostForm("name"),
		Email:   c.PostForm("email"),
		BatchID: formInt(c, "batch_id"),
		Photo:   photo,
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Student updated successfully.", "student": st})
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Student deleted successfully."})
}
