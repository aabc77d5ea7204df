package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/researchrender/researchrender/pkg/docstore"
	"github.com/researchrender/researchrender/pkg/generate"
	"github.com/researchrender/researchrender/pkg/ingest"
	"github.com/researchrender/researchrender/pkg/llm"
	"github.com/researchrender/researchrender/pkg/logger"
	"github.com/researchrender/researchrender/pkg/models"
	"github.com/researchrender/researchrender/pkg/pipeline"
)

// multipartOverhead allows for form boundaries and headers around the file.
const multipartOverhead = 1 << 20

func (s *Server) handleUpload(c *gin.Context) {
	ctx := c.Request.Context()
	if s.policy.MaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.policy.MaxBytes+multipartOverhead)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(c, http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close()

	filename := ingest.SanitizeFilename(header.Filename)
	if err := s.policy.Validate(filename, header.Size); err != nil {
		switch {
		case errors.Is(err, ingest.ErrTooLarge):
			writeError(c, http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, ingest.ErrEmptyFilename):
			writeError(c, http.StatusBadRequest, "No selected file")
		default:
			writeError(c, http.StatusBadRequest, err.Error())
		}
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(c, http.StatusBadRequest, "Failed to read file")
		return
	}

	if s.deps.Docs != nil {
		key := docstore.ObjectKey(filename, time.Now())
		if err := s.deps.Docs.Put(ctx, key, data, contentType(filename)); err != nil {
			logger.Warn(ctx, "store upload failed", "key", key, "error", err)
		} else {
			defer func() {
				if err := s.deps.Docs.Delete(ctx, key); err != nil {
					logger.Warn(ctx, "delete upload failed", "key", key, "error", err)
				}
			}()
		}
	}

	text, err := ingest.Extract(filename, data)
	if err != nil {
		logger.Warn(ctx, "text extraction failed", "filename", filename, "error", err)
		if errors.Is(err, ingest.ErrNotText) {
			writeError(c, http.StatusBadRequest, "Unable to decode file content")
			return
		}
		writeError(c, http.StatusUnprocessableEntity, "Failed to extract text from "+filename)
		return
	}

	opts := pipeline.DefaultOptions()
	opts.Filename = filename
	res, err := s.deps.Pipeline.Process(ctx, text, opts)
	if err != nil {
		s.writeStageError(c, err)
		return
	}
	c.JSON(http.StatusOK, resultBody(res))
}

type generateCodeRequest struct {
	Steps string `json:"steps" binding:"required"`
}

func (s *Server) handleGenerateCode(c *gin.Context) {
	var req generateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "steps is required")
		return
	}

	res, err := s.deps.Pipeline.Process(c.Request.Context(), req.Steps, pipeline.Options{GenerateCode: true})
	if err != nil {
		s.writeStageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": res.Code})
}

func (s *Server) handleGetPaper(c *gin.Context) {
	if s.deps.Records == nil {
		writeError(c, http.StatusNotFound, "paper records are not enabled")
		return
	}
	rec, err := s.deps.Records.Get(c.Request.Context(), c.Param("hash"))
	if err != nil {
		logger.Error(c.Request.Context(), "get paper", "error", err)
		writeError(c, http.StatusInternalServerError, "Failed to read paper record")
		return
	}
	if rec == nil {
		writeError(c, http.StatusNotFound, "paper not found")
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStats(c *gin.Context) {
	if s.deps.Stats == nil {
		writeError(c, http.StatusNotImplemented, "stats are not available for this backend")
		return
	}
	stats, err := s.deps.Stats.Stats(c.Request.Context())
	if err != nil {
		logger.Error(c.Request.Context(), "cache stats", "error", err)
		writeError(c, http.StatusInternalServerError, "Failed to read stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// writeStageError reports a pipeline failure, naming the stage when known.
func (s *Server) writeStageError(c *gin.Context, err error) {
	var se *generate.StageError
	if errors.As(err, &se) {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":    "Failed to generate " + string(se.Stage) + ": " + se.Err.Error(),
			"stage":    se.Stage,
			"cause":    llm.Cause(se.Err),
			"attempts": se.Attempts,
		})
		return
	}
	logger.Error(c.Request.Context(), "process failed", "error", err)
	writeError(c, http.StatusInternalServerError, "An unexpected error occurred")
}

func resultBody(res *models.ProcessResult) gin.H {
	body := gin.H{
		"content_hash": res.ContentHash,
		"steps":        res.Steps,
		"code":         res.Code,
	}
	if res.Message != "" {
		body["message"] = res.Message
	}
	if res.Error != nil {
		body["error"] = res.Error.Message
		body["stage"] = res.Error.Stage
		body["cause"] = res.Error.Cause
	}
	return body
}

func contentType(filename string) string {
	if t := mime.TypeByExtension(filepath.Ext(filename)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func writeError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
