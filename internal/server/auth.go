package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/USA-RedDragon/itinerary-server/internal/config"
	"github.com/USA-RedDragon/itinerary-server/internal/db/models"
	"github.com/USA-RedDragon/itinerary-server/internal/itinerary"
	"github.com/USA-RedDragon/itinerary-server/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const authScheme = "JWT "

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
}

func abortTryAgain(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
}

// bearerToken reads the token from the Authorization header, falling back to
// the access_token query parameter.
func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		if !strings.HasPrefix(header, authScheme) {
			return "", false
		}
		return strings.TrimPrefix(header, authScheme), true
	}
	if token := c.Query("access_token"); token != "" {
		return token, true
	}
	return "", false
}

// requireAuth resolves the calling user and stores it as "user".
func requireAuth(config *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c)
			return
		}

		db, ok := c.MustGet("db").(*gorm.DB)
		if !ok {
			slog.Error("Failed to get db from context")
			abortTryAgain(c)
			return
		}

		uid, err := utils.VerifyJWT(config.JWT.Secret, token)
		if err != nil {
			slog.Warn("Failed to verify user JWT", "error", err)
			abortUnauthorized(c)
			return
		}
		user, err := models.FindUserByID(db.WithContext(c.Request.Context()), uid)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			abortUnauthorized(c)
			return
		case err != nil:
			slog.Error("Failed to find user", "error", err)
			abortTryAgain(c)
			return
		}
		c.Set("user", &user)
		c.Next()
	}
}

// requireTripOwner must run after requireAuth on routes with a trip_id param.
func requireTripOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID := c.Param("trip_id")
		if tripID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "trip_id is required"})
			return
		}

		user, ok := c.MustGet("user").(*models.User)
		if !ok {
			abortTryAgain(c)
			return
		}
		svc, ok := c.MustGet("itinerary").(*itinerary.Service)
		if !ok {
			slog.Error("Failed to get itinerary service from context")
			abortTryAgain(c)
			return
		}

		_, err := svc.Authorize(c.Request.Context(), tripID, user.ID)
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, itinerary.ErrTripNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Not Found"})
		case errors.Is(err, itinerary.ErrForbidden):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		default:
			slog.Error("Failed to authorize trip access", "error", err)
			abortTryAgain(c)
		}
	}
}
