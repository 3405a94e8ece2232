package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/obe-portal-api/internal/attainment"
	"github.com/noah-isme/obe-portal-api/internal/middleware"
	"github.com/noah-isme/obe-portal-api/internal/models"
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

func viewerFromClaims(claims *models.JWTClaims, batch string) attainment.Viewer {
	return attainment.Viewer{
		Role:      claims.Role,
		UserID:    claims.UserID,
		ProgramID: claims.ProgramID,
		BatchName: batch,
	}
}
