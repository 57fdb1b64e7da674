package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"walletledger/internal/cache"
	"walletledger/internal/domain"
	"walletledger/internal/ledger"
	"walletledger/internal/money"
	"walletledger/internal/processor"

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// TransactionRequest represents a credit or debit request
type TransactionRequest struct {
	UserID uint        `json:"userId" binding:"required"` // Target user
	Amount money.Minor `json:"amount" binding:"required"` // Amount in major units, e.g. 500 or 123.45
}

// TransactionResponse is the shape clients expect for a transaction
type TransactionResponse struct {
	ID               uint        `json:"id"`               // Transaction ID
	UserID           uint        `json:"userId"`           // Owning user
	Type             string      `json:"type"`             // CREDIT or DEBIT
	Amount           money.Minor `json:"amount"`           // Requested amount
	Status           string      `json:"status"`           // SUCCESS or FAILED
	ResultingBalance money.Minor `json:"resultingBalance"` // Balance after the operation
	Timestamp        time.Time   `json:"timestamp"`        // When the transaction was recorded
}

func toTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:               t.ID,
		UserID:           t.UserID,
		Type:             t.Type,
		Amount:           t.Amount,
		Status:           t.Status,
		ResultingBalance: t.ResultingBalance,
		Timestamp:        t.CreatedAt,
	}
}

// CreditHandler credits a user's wallet
func CreditHandler(proc *processor.Processor, rdb *redis.Client) gin.HandlerFunc {
	return transactionHandler(proc.Credit, rdb)
}

// DebitHandler debits a user's wallet
func DebitHandler(proc *processor.Processor, rdb *redis.Client) gin.HandlerFunc {
	return transactionHandler(proc.Debit, rdb)
}

// transactionHandler binds a credit/debit request, applies it and
// invalidates the user's cached views.
func transactionHandler(apply func(context.Context, uint, money.Minor) (*domain.Transaction, error), rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TransactionRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails (missing fields, malformed amount), return bad request
			c.JSON(http.StatusBadRequest, gin.H{"message": "userId and a positive amount are required"})
			return
		}
		tx, err := apply(c.Request.Context(), req.UserID, req.Amount)
		if err != nil {
			// A rejected debit still appends a FAILED row, so the cached
			// history is stale either way.
			invalidateUserCache(c.Request.Context(), rdb, req.UserID)
			writeError(c, err)
			return
		}
		invalidateUserCache(c.Request.Context(), rdb, req.UserID)
		c.JSON(http.StatusOK, toTransactionResponse(tx))
	}
}

// GetTransactionHistoryHandler returns a page of a user's transaction log
func GetTransactionHistoryHandler(proc *processor.Processor, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid user id"})
			return
		}
		page := 1      // Default page
		pageSize := 20 // Default page size
		// If page exists in query
		if p := c.Query("page"); p != "" {
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v // Set page if valid
			}
		}
		// If page_size exists in query
		if ps := c.Query("page_size"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v // Set page size if valid
			}
		}
		ctx := c.Request.Context()
		cacheKey := historyCacheKey(uint(userID), page, pageSize)
		var cached ledger.HistoryPage
		// Try to get from cache
		if found, err := cache.Get(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}
		hp, err := proc.History(ctx, uint(userID), page, pageSize)
		if err != nil {
			writeError(c, err)
			return
		}
		// Cache the page for 60 seconds
		_ = cache.Set(ctx, rdb, cacheKey, hp, 60*time.Second)
		c.JSON(http.StatusOK, hp)
	}
}

func historyCacheKey(userID uint, page, pageSize int) string {
	return "txhistory:user:" + strconv.Itoa(int(userID)) +
		":page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
}

// invalidateUserCache drops the user's cached balance and the first history
// pages after a mutation.
func invalidateUserCache(ctx context.Context, rdb *redis.Client, userID uint) {
	if rdb == nil {
		return // Caching disabled
	}
	_ = cache.Delete(ctx, rdb, balanceCacheKey(userID)) // Invalidate balance cache
	// Invalidate paginated history cache (simple version: delete first 5 pages)
	for i := 1; i <= 5; i++ {
		_ = cache.Delete(ctx, rdb, historyCacheKey(userID, i, 20))
	}
}
