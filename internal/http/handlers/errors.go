package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	response "github.com/yungbote/mentorbridge-backend/internal/http/response"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/ingestion"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/vectorindex"
	"github.com/yungbote/mentorbridge-backend/internal/platform/apierr"
)

// writeError maps service errors onto the API envelope. Unreadable PDFs are
// 422 and an unreachable vector store is 503; the shared sentinels follow
// apierr.From.
func writeError(c *gin.Context, err error) {
	switch {
	case ingestion.IsExtractionError(err):
		response.RespondAPIError(c, apierr.New(http.StatusUnprocessableEntity, "pdf_extraction_failed", err))
	case errors.Is(err, vectorindex.ErrStoreUnavailable):
		response.RespondAPIError(c, apierr.New(http.StatusServiceUnavailable, "vector_store_unavailable", err))
	default:
		response.RespondAPIError(c, apierr.From(err))
	}
}

func badRequest(c *gin.Context, err error) {
	response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
}
