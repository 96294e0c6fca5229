package routes

import (
	"net/http"

	"orderflow/internal/adapter/http/handlers"

	"github.com/gin-gonic/gin"
)

const (
	PathOrders      = "/orders"
	PathExecutions  = "/executions"
	PathDeadLetters = "/dead-letters"
)

func addPingRoutes(rg *gin.RouterGroup) {
	rg.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
}

func addOrderRoutes(rg *gin.RouterGroup, orderHandler *handlers.OrderHandler, executionHandler *handlers.ExecutionHandler) {
	orders := rg.Group(PathOrders)
	{
		orders.POST("", orderHandler.SubmitOrder)
		orders.GET("/:user_id/:id", orderHandler.GetOrder)
		orders.PATCH("/:user_id/:id", orderHandler.UpdateOrder)
		orders.DELETE("/:user_id/:id", orderHandler.DeleteOrder)
		orders.GET("/:user_id/:id/execution", executionHandler.GetOrderExecution)
	}

	rg.GET(PathExecutions+"/:id", executionHandler.GetExecution)
	rg.GET(PathDeadLetters, executionHandler.ListDeadLetters)
}
