package api

import (
	"walletledger/internal/processor"
	"walletledger/internal/registry"

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// RegisterRoutes wires all handlers onto the router. One consistent routing
// scheme: credit/debit carry the user id in the body, balance and history
// carry it in the path.
func RegisterRoutes(r *gin.Engine, reg *registry.Registry, proc *processor.Processor, rdb *redis.Client) {
	r.POST("/users", CreateUserHandler(reg)) // Registration endpoint
	r.GET("/users/:id", GetUserHandler(reg)) // User lookup endpoint

	txGroup := r.Group("/transactions")
	txGroup.POST("/credit", CreditHandler(proc, rdb))                   // Credit endpoint
	txGroup.POST("/debit", DebitHandler(proc, rdb))                     // Debit endpoint
	txGroup.GET("/:userId", GetTransactionHistoryHandler(proc, rdb))    // Transaction history endpoint

	r.GET("/wallet/:userId", GetBalanceHandler(proc, rdb)) // Balance endpoint
}
