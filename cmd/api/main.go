package main

import (
	_ "orderflow/docs"
	"orderflow/internal/adapter/http/routes"

	_ "github.com/joho/godotenv/autoload"
)

// @title           Order Workflow API
// @version         1.0
// @description     Order submission, order reads/writes and workflow status for the order-processing orchestrator.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080

// @BasePath  /v1

func main() {
	routes.Run()
}
