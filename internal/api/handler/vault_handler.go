package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/filevault/vault-api/internal/api/metrics"
	"github.com/filevault/vault-api/internal/core/ports"
)

// VaultHandler handles HTTP requests for file lifecycle operations.
type VaultHandler struct {
	service ports.VaultService
}

func NewVaultHandler(service ports.VaultService) *VaultHandler {
	return &VaultHandler{service: service}
}

// boolQuery parses a boolean query parameter, defaulting to false.
func boolQuery(c echo.Context, name string) bool {
	v, err := strconv.ParseBool(c.QueryParam(name))
	return err == nil && v
}

// Upload handles POST /v1/files.
//
// @Summary      Upload a file
// @Tags         files
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file       formData  file    true   "File content"
// @Param        overwrite  query     bool    false  "Replace an existing active file of the same name"
// @Success      201  {object}  uploadResponse
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /v1/files [post]
func (h *VaultHandler) Upload(c echo.Context) error {
	ident, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if fh.Size == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "file is empty")
	}

	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read uploaded file")
	}
	defer src.Close()

	result, err := h.service.Upload(c.Request().Context(), ident, ports.UploadInput{
		Filename:    fh.Filename,
		Content:     src,
		Size:        fh.Size,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Overwrite:   boolQuery(c, "overwrite"),
	})
	if err != nil {
		return err
	}

	metrics.FilesUploadedTotal.WithLabelValues(uploadResultLabel(result.Replaced)).Inc()
	metrics.UploadBytes.Observe(float64(result.SizeBytes))

	return c.JSON(http.StatusCreated, uploadResponse{
		Filename:   result.Filename,
		SizeBytes:  result.SizeBytes,
		UploadedAt: result.UploadedAt,
		Replaced:   result.Replaced,
	})
}

func uploadResultLabel(replaced bool) string {
	if replaced {
		return "replaced"
	}
	return "created"
}

// List handles GET /v1/files and returns the caller's active filenames.
//
// @Summary      List own files
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  listResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/files [get]
func (h *VaultHandler) List(c echo.Context) error {
	ident, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	names, err := h.service.List(c.Request().Context(), ident)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse{Files: names})
}

// Search handles GET /v1/files/search?keyword=.
//
// @Summary      Search files by name
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Param        keyword  query  string  true  "Case-insensitive substring to match"
// @Success      200  {object}  searchResponse
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/files/search [get]
func (h *VaultHandler) Search(c echo.Context) error {
	ident, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	keyword := c.QueryParam("keyword")
	if keyword == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "keyword is required")
	}

	hits, err := h.service.Search(c.Request().Context(), ident, keyword)
	if err != nil {
		return err
	}

	results := make([]fileDescriptorResponse, 0, len(hits))
	for _, d := range hits {
		results = append(results, fileDescriptorResponse{
			Filename:   d.Filename,
			Owner:      d.Owner,
			SizeBytes:  d.SizeBytes,
			UploadedAt: d.UploadedAt,
		})
	}
	return c.JSON(http.StatusOK, searchResponse{Results: results})
}

// Download handles GET /v1/files/:filename, streaming the file back as an
// attachment with the stored name.
//
// @Summary      Download a file
// @Tags         files
// @Produce      octet-stream
// @Security     BearerAuth
// @Param        filename  path  string  true  "Logical file name"
// @Success      200  {file}    file
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /v1/files/{filename} [get]
func (h *VaultHandler) Download(c echo.Context) error {
	ident, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	res, err := h.service.Download(c.Request().Context(), ident, c.Param("filename"))
	if err != nil {
		return err
	}
	defer res.Content.Close()

	metrics.FilesDownloadedTotal.Inc()

	contentType := res.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", res.Filename))
	return c.Stream(http.StatusOK, contentType, res.Content)
}

// Delete handles DELETE /v1/files/:filename?confirm=&hard=.
//
// @Summary      Delete a file
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Param        filename  path   string  true   "Logical file name"
// @Param        confirm   query  bool    false  "Must be true; destructive calls are two-step"
// @Param        hard      query  bool    false  "Also remove the stored bytes"
// @Success      200  {object}  deleteResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /v1/files/{filename} [delete]
func (h *VaultHandler) Delete(c echo.Context) error {
	ident, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	res, err := h.service.Delete(c.Request().Context(), ident, c.Param("filename"), boolQuery(c, "confirm"), boolQuery(c, "hard"))
	if err != nil {
		return err
	}

	metrics.FilesDeletedTotal.WithLabelValues(deleteModeLabel(res.Hard)).Inc()
	return c.JSON(http.StatusOK, deleteResponse{Filename: res.Filename, Hard: res.Hard})
}

func deleteModeLabel(hard bool) string {
	if hard {
		return "hard"
	}
	return "soft"
}

// DeleteAll handles DELETE /v1/files?confirm=&hard=.
//
// @Summary      Delete all own files
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Param        confirm  query  bool  false  "Must be true; destructive calls are two-step"
// @Param        hard     query  bool  false  "Also remove the stored bytes"
// @Success      200  {object}  deleteAllResponse
// @Failure      401  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /v1/files [delete]
func (h *VaultHandler) DeleteAll(c echo.Context) error {
	ident, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	hard := boolQuery(c, "hard")
	n, err := h.service.DeleteAll(c.Request().Context(), ident, boolQuery(c, "confirm"), hard)
	if err != nil {
		return err
	}

	metrics.FilesDeletedTotal.WithLabelValues(deleteModeLabel(hard)).Add(float64(n))
	return c.JSON(http.StatusOK, deleteAllResponse{Deleted: n})
}

// AdminDelete handles DELETE /v1/admin/files/:username/:filename.
//
// @Summary      Delete a file of any user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        username  path   string  true   "Target owner"
// @Param        filename  path   string  true   "Logical file name"
// @Param        confirm   query  bool    false  "Must be true; destructive calls are two-step"
// @Param        hard      query  bool    false  "Also remove the stored bytes"
// @Success      200  {object}  deleteResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /v1/admin/files/{username}/{filename} [delete]
func (h *VaultHandler) AdminDelete(c echo.Context) error {
	res, err := h.service.AdminDelete(c.Request().Context(), c.Param("username"), c.Param("filename"), boolQuery(c, "confirm"), boolQuery(c, "hard"))
	if err != nil {
		return err
	}

	metrics.FilesDeletedTotal.WithLabelValues(deleteModeLabel(res.Hard)).Inc()
	return c.JSON(http.StatusOK, deleteResponse{Filename: res.Filename, Hard: res.Hard})
}

// AdminDeleteAll handles DELETE /v1/admin/files/:username.
//
// @Summary      Delete all files of any user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        username  path   string  true   "Target owner"
// @Param        confirm   query  bool    false  "Must be true; destructive calls are two-step"
// @Param        hard      query  bool    false  "Also remove the stored bytes"
// @Success      200  {object}  deleteAllResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /v1/admin/files/{username} [delete]
func (h *VaultHandler) AdminDeleteAll(c echo.Context) error {
	hard := boolQuery(c, "hard")
	n, err := h.service.AdminDeleteAll(c.Request().Context(), c.Param("username"), boolQuery(c, "confirm"), hard)
	if err != nil {
		return err
	}

	metrics.FilesDeletedTotal.WithLabelValues(deleteModeLabel(hard)).Add(float64(n))
	return c.JSON(http.StatusOK, deleteAllResponse{Deleted: n})
}

// AdminListAll handles GET /v1/admin/files: every active record with its owner.
//
// @Summary      List all active files across users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  searchResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/admin/files [get]
func (h *VaultHandler) AdminListAll(c echo.Context) error {
	all, err := h.service.AdminListAll(c.Request().Context())
	if err != nil {
		return err
	}

	results := make([]fileDescriptorResponse, 0, len(all))
	for _, d := range all {
		results = append(results, fileDescriptorResponse{
			Filename:   d.Filename,
			Owner:      d.Owner,
			SizeBytes:  d.SizeBytes,
			UploadedAt: d.UploadedAt,
		})
	}
	return c.JSON(http.StatusOK, searchResponse{Results: results})
}
