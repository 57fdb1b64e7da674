package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"walletledger/internal/registry"

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// CreateUserRequest represents a registration request
type CreateUserRequest struct {
	Name  string `json:"name" binding:"required"`        // Name must be provided
	Email string `json:"email" binding:"required,email"` // Email must be provided and well-formed
}

// UserResponse is the shape clients expect for a user
type UserResponse struct {
	ID    uint   `json:"id"`    // User ID
	Name  string `json:"name"`  // Display name
	Email string `json:"email"` // Email address
}

// CreateUserHandler registers a new user with a zero-balance wallet
func CreateUserHandler(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateUserRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding or email validation fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"message": "name and a valid email are required"})
			return
		}
		user, err := reg.CreateUser(c.Request.Context(), req.Name, req.Email)
		if err != nil {
			writeError(c, err)
			return
		}
		// Log successful registration
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,    // User ID
			"email":   user.Email, // Email address
		}).Info("User registered")
		c.JSON(http.StatusCreated, UserResponse{ID: user.ID, Name: user.Name, Email: user.Email})
	}
}

// GetUserHandler returns a user by id
func GetUserHandler(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid user id"})
			return
		}
		user, err := reg.GetUser(c.Request.Context(), uint(id))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, UserResponse{ID: user.ID, Name: user.Name, Email: user.Email})
	}
}
