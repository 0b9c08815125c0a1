package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gradeshop_api/internal/repository"
	"github.com/GTDGit/gradeshop_api/internal/service"
	"github.com/GTDGit/gradeshop_api/internal/utils"
)

// respondError maps service and repository errors onto the error envelope.
func respondError(c *gin.Context, err error) {
	status, code, message := classifyError(err)

	var details gin.H
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		details = gin.H{"registro": verr.Record, "campo": verr.Field}
	}
	var batchErr *service.BatchError
	if errors.As(err, &batchErr) {
		if details == nil {
			details = gin.H{}
		}
		details["failed_record"] = batchErr.FailedRecord
		details["committed_records"] = batchErr.CommittedRecords
		details["partial"] = batchErr.Partial
	}

	if status >= 500 {
		log.Error().Err(err).Str("request_id", c.GetString(utils.ContextRequestID)).Msg("request failed")
	}

	if details == nil {
		utils.Error(c, status, code, message)
		return
	}
	utils.ErrorWithDetails(c, status, code, message, details)
}

func classifyError(err error) (int, string, string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, utils.CodeValidation, verr.Error()
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, utils.CodeNotFound, "Resource not found"
	case errors.Is(err, repository.ErrDuplicateKey):
		return http.StatusConflict, utils.CodeDuplicateKey, "Resource already exists"
	case errors.Is(err, repository.ErrConstraintRace):
		return http.StatusServiceUnavailable, utils.CodeTransientConflict, "Concurrent write conflict, retry the request"
	case errors.Is(err, repository.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, utils.CodeStorageUnavailable, "Storage unavailable"
	}
	return http.StatusInternalServerError, utils.CodeInternal, "Internal server error"
}
