package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"walletledger/internal/cache"
	"walletledger/internal/money"
	"walletledger/internal/processor"

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// BalanceResponse is the shape clients expect for a balance lookup
type BalanceResponse struct {
	UserID  uint        `json:"userId"`  // User ID
	Balance money.Minor `json:"balance"` // Current balance in major units
}

// GetBalanceHandler returns the latest committed balance for a user
func GetBalanceHandler(proc *processor.Processor, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid user id"})
			return
		}
		ctx := c.Request.Context()
		cacheKey := balanceCacheKey(uint(userID))
		var resp BalanceResponse
		// Try to get from cache
		if found, err := cache.Get(ctx, rdb, cacheKey, &resp); err == nil && found {
			c.JSON(http.StatusOK, resp)
			return
		}
		wallet, err := proc.Balance(ctx, uint(userID))
		if err != nil {
			writeError(c, err)
			return
		}
		resp = BalanceResponse{UserID: wallet.UserID, Balance: wallet.Balance}
		_ = cache.Set(ctx, rdb, cacheKey, resp, 60*time.Second) // Cache the balance for 60 seconds
		c.JSON(http.StatusOK, resp)
	}
}

func balanceCacheKey(userID uint) string {
	return "wallet:user:" + strconv.Itoa(int(userID))
}
