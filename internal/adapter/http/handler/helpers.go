package handler

import (
	"strconv"
	"time"

	"consenthub/pkg/apperror"
	"consenthub/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// pagination reads limit/offset query params, clamping to sane bounds.
func pagination(c *gin.Context) (limit, offset int) {
	limit = defaultPageLimit
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if raw := c.Query("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

// pathID parses the :id (or named) path segment as a UUID.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Error(c, apperror.Validation("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID parses an optional UUID query param; nil when absent.
func queryUUID(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperror.Validation("invalid " + name)
	}
	return &id, nil
}

// queryTime parses an optional RFC 3339 timestamp query param.
func queryTime(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Accept bare dates too, common in dashboard links.
		d, derr := time.Parse("2006-01-02", raw)
		if derr != nil {
			return nil, apperror.Validation(name + " must be RFC 3339 or YYYY-MM-DD")
		}
		t = d
	}
	return &t, nil
}
