package handler

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/associacao-ensino/inscricoes-backend/internal/middleware"
	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/associacao-ensino/inscricoes-backend/internal/response"
	"github.com/associacao-ensino/inscricoes-backend/internal/service"
	"github.com/associacao-ensino/inscricoes-backend/internal/validator"
)

// EnrollmentHandler runs the enrollment form submission.
type EnrollmentHandler struct {
	workflow *service.EnrollmentWorkflow
	log      zerolog.Logger
}

// NewEnrollmentHandler creates a new EnrollmentHandler.
func NewEnrollmentHandler(workflow *service.EnrollmentWorkflow, log zerolog.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		workflow: workflow,
		log:      log.With().Str("component", "enrollment_handler").Logger(),
	}
}

// Enroll godoc
// POST /api/v1/admin/enrollments
// Accepts the multipart enrollment form with up to four documents (foto,
// copia_bi, declaracao_certificado, comprovativo_pagamento). Clients sending
// Accept: text/event-stream receive "progress" events followed by one
// "result" event; others get a single JSON envelope.
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req model.EnrollmentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, validator.TranslateErrors(err))
		return
	}

	files, closeFiles, err := formDocuments(c)
	if err != nil {
		response.FailWithMessage(c, http.StatusBadRequest, response.ErrInvalidPayload, "", map[string]string{"detail": err.Error()})
		return
	}
	defer closeFiles()

	caller := middleware.GetCaller(c)

	if strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		h.enrollStream(c, caller, req, files)
		return
	}

	result := h.workflow.Enroll(c.Request.Context(), caller, req, files, nil)
	if !result.Success {
		status, code := statusOf(result.Kind)
		response.FailWithData(c, status, code, result.Message, result)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

func (h *EnrollmentHandler) enrollStream(c *gin.Context, caller model.Caller, req model.EnrollmentRequest, files map[model.DocumentKind]*service.UploadedFile) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Status(http.StatusOK)

	progress := func(p service.Progress) {
		c.SSEvent("progress", p)
		c.Writer.Flush()
	}

	result := h.workflow.Enroll(c.Request.Context(), caller, req, files, progress)
	c.SSEvent("result", result)
	c.Writer.Flush()
}

// formDocuments opens the uploaded documents. Missing files are skipped.
func formDocuments(c *gin.Context) (map[model.DocumentKind]*service.UploadedFile, func(), error) {
	files := make(map[model.DocumentKind]*service.UploadedFile, len(model.DocumentKinds))
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	for _, kind := range model.DocumentKinds {
		header, err := c.FormFile(string(kind))
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
				continue
			}
			closeAll()
			return nil, func() {}, err
		}
		f, err := header.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		opened = append(opened, f)
		contentType := header.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(header.Filename))); byExt != "" {
				contentType, _, _ = strings.Cut(byExt, ";")
			}
		}
		files[kind] = &service.UploadedFile{
			Filename:    header.Filename,
			ContentType: contentType,
			Size:        header.Size,
			Content:     f,
		}
	}
	return files, closeAll, nil
}
