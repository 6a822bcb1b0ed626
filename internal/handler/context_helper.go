package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-ranking-api/internal/middleware"
	"github.com/noah-isme/lms-ranking-api/internal/models"
	appErrors "github.com/noah-isme/lms-ranking-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// pageFromQuery reads page/page_size, rejecting non-numeric values.
func pageFromQuery(c *gin.Context) (models.PageRequest, error) {
	var page models.PageRequest
	var err error
	if raw := strings.TrimSpace(c.Query("page")); raw != "" {
		if page.Page, err = strconv.Atoi(raw); err != nil {
			return page, appErrors.Clone(appErrors.ErrValidation, "page must be a number")
		}
	}
	if raw := strings.TrimSpace(c.Query("page_size")); raw != "" {
		if page.PageSize, err = strconv.Atoi(raw); err != nil {
			return page, appErrors.Clone(appErrors.ErrValidation, "page_size must be a number")
		}
	}
	return page.Normalize(), nil
}

func boolQuery(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
}

func withCacheMeta(c *gin.Context, hit bool) map[string]interface{} {
	middleware.SetCacheHit(c, hit)
	return middleware.ExtractMeta(c)
}
