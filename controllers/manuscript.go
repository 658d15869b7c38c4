package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"journal-api/models"
	"journal-api/services"
	"journal-api/storage"
	"journal-api/utils"
)

const downloadURLTTL = 10 * time.Minute

// uploadFormLimit bounds a whole multipart request: one manuscript plus room
// for the text fields.
const uploadFormLimit = utils.MaxManuscriptBytes + 1<<20

// parseUploadForm caps the request body and parses the form in memory, so
// an oversized upload is cut off before anything is buffered to disk.
func (a *API) parseUploadForm(c *gin.Context, field string) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, uploadFormLimit)
	err := c.Request.ParseMultipartForm(uploadFormLimit)
	if err == nil {
		return true
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		a.badRequest(c, field, "file exceeds the 10MB limit")
		return false
	}
	a.badRequest(c, field, "a PDF file is required")
	return false
}

// readUpload pulls one file out of a parsed multipart form, refusing anything
// over the manuscript size limit.
func (a *API) readUpload(c *gin.Context, field string) (services.Upload, bool) {
	header, err := c.FormFile(field)
	if err != nil {
		a.badRequest(c, field, "a PDF file is required")
		return services.Upload{}, false
	}
	if header.Size > utils.MaxManuscriptBytes {
		a.badRequest(c, field, "file exceeds the 10MB limit")
		return services.Upload{}, false
	}
	f, err := header.Open()
	if err != nil {
		a.badRequest(c, field, "could not read uploaded file")
		return services.Upload{}, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, utils.MaxManuscriptBytes+1))
	if err != nil {
		a.badRequest(c, field, "could not read uploaded file")
		return services.Upload{}, false
	}
	if len(data) > utils.MaxManuscriptBytes {
		a.badRequest(c, field, "file exceeds the 10MB limit")
		return services.Upload{}, false
	}
	return services.Upload{Filename: path.Base(header.Filename), Data: data}, true
}

// formList accepts either a JSON array or a comma separated string.
func formList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var out []string
		if err := json.Unmarshal([]byte(raw), &out); err == nil {
			return out
		}
	}
	return strings.Split(raw, ",")
}

// POST /api/manuscripts/submit (multipart)
func (a *API) SubmitManuscript(c *gin.Context) {
	// Role checks come before the form so an unauthorised caller never gets
	// a validation or upload error.
	actor := currentUser(c)
	if err := services.RequireSubmitter(actor); err != nil {
		a.respondError(c, err)
		return
	}
	if !a.parseUploadForm(c, "manuscript") {
		return
	}

	in := services.SubmitInput{
		Title:    c.PostForm("title"),
		Abstract: c.PostForm("abstract"),
		Domain:   c.PostForm("domain"),
		Keywords: formList(c.PostForm("keywords")),
	}
	if raw := strings.TrimSpace(c.PostForm("authors")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.Authors); err != nil {
			a.badRequest(c, "authors", "must be a JSON array of {user, isCorresponding}")
			return
		}
	}
	file, ok := a.readUpload(c, "manuscript")
	if !ok {
		return
	}

	m, err := a.Manuscripts.Submit(c.Request.Context(), actor, in, file)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"message":    "Manuscript submitted successfully",
		"manuscript": m,
	})
}

// POST /api/manuscripts/:id/submit-revision (multipart)
func (a *API) SubmitRevision(c *gin.Context) {
	id, ok := a.paramID(c, "id")
	if !ok {
		return
	}
	actor := currentUser(c)
	if err := services.RequireRole(actor, models.RoleAuthor); err != nil {
		a.respondError(c, err)
		return
	}
	if !a.parseUploadForm(c, "revisionFile") {
		return
	}
	file, ok := a.readUpload(c, "revisionFile")
	if !ok {
		return
	}
	m, err := a.Manuscripts.SubmitRevision(c.Request.Context(), actor, id, c.PostForm("revisionNotes"), file)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Revision submitted successfully",
		"manuscript": m,
	})
}

// GET /api/manuscripts/my-manuscripts
func (a *API) MyManuscripts(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)
	rows, total, err := a.Manuscripts.ListMine(c.Request.Context(), currentUser(c), page, limit)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"manuscripts": rows,
		"pagination":  paginated(page, limit, total),
	})
}

// GET /api/manuscripts/:id
func (a *API) GetManuscript(c *gin.Context) {
	id, ok := a.paramID(c, "id")
	if !ok {
		return
	}
	m, err := a.Manuscripts.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "manuscript": m})
}

// GET /api/manuscripts/:id/history
func (a *API) ManuscriptHistory(c *gin.Context) {
	id, ok := a.paramID(c, "id")
	if !ok {
		return
	}
	rows, err := a.Manuscripts.History(c.Request.Context(), currentUser(c), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "history": rows})
}

// GET /api/manuscripts/:id/download
func (a *API) DownloadManuscript(c *gin.Context) {
	id, ok := a.paramID(c, "id")
	if !ok {
		return
	}
	ref, err := a.Manuscripts.File(c.Request.Context(), currentUser(c), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	a.sendFile(c, ref)
}

// GET /api/manuscripts/accepted/:id/download
func (a *API) DownloadPublicManuscript(c *gin.Context) {
	id, ok := a.paramID(c, "id")
	if !ok {
		return
	}
	ref, err := a.Manuscripts.PublicFile(c.Request.Context(), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	a.sendFile(c, ref)
}

// sendFile redirects to a presigned URL when the store can mint one and
// streams the object otherwise.
func (a *API) sendFile(c *gin.Context, ref models.FileRef) {
	if ref.StorageID == "" {
		a.respondError(c, services.NotFound("file"))
		return
	}
	ctx := c.Request.Context()
	signed, err := a.Files.PresignGet(ctx, ref.StorageID, downloadURLTTL)
	if err == nil {
		c.Redirect(http.StatusFound, signed)
		return
	}
	if !errors.Is(err, storage.ErrPresignUnsupported) {
		a.Log.Warn("presign failed, streaming instead", zap.String("key", ref.StorageID), zap.Error(err))
	}

	body, err := a.Files.Open(ctx, ref.StorageID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			a.respondError(c, services.NotFound("file"))
			return
		}
		a.respondError(c, services.Upstream("file storage is unavailable", err))
		return
	}
	defer body.Close()

	name := ref.OriginalName
	if name == "" {
		name = path.Base(ref.StorageID)
	}
	contentType := ref.MimeType
	if contentType == "" {
		contentType = "application/pdf"
	}
	c.DataFromReader(http.StatusOK, ref.Size, contentType, body, map[string]string{
		"Content-Disposition": `attachment; filename="` + strings.ReplaceAll(name, `"`, "") + `"`,
	})
}

func catalogQuery(c *gin.Context) services.CatalogQuery {
	return services.CatalogQuery{
		Page:     queryInt(c, "page", 1),
		Limit:    queryInt(c, "limit", 20),
		Search:   strings.TrimSpace(c.Query("search")),
		Domain:   strings.TrimSpace(c.Query("domain")),
		Selected: queryBool(c, "selected"),
	}
}

// GET /api/manuscripts/accepted
func (a *API) AcceptedManuscripts(c *gin.Context) {
	page, err := a.Catalog.Accepted(c.Request.Context(), catalogQuery(c))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"manuscripts": page.Items,
		"pagination":  paginated(page.Page, page.Limit, page.Total),
	})
}

// GET /api/manuscripts/published
func (a *API) PublishedManuscripts(c *gin.Context) {
	page, err := a.Catalog.Published(c.Request.Context(), catalogQuery(c))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"manuscripts": page.Items,
		"pagination":  paginated(page.Page, page.Limit, page.Total),
	})
}

// GET /api/manuscripts/published/:id
func (a *API) PublishedManuscript(c *gin.Context) {
	id, ok := a.paramID(c, "id")
	if !ok {
		return
	}
	m, err := a.Catalog.PublishedByID(c.Request.Context(), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "manuscript": m})
}
