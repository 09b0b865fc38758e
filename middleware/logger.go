package middleware

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

// quietPaths are polled by probes and scrapers.
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

func skipQuiet(c *fiber.Ctx) bool {
	return quietPaths[c.Path()]
}

func Logger(appEnv string) fiber.Handler {
	if appEnv == "prod" {
		return logger.New(logger.Config{
			Next:       skipQuiet,
			Format:     `{"time":"${time}","ip":"${ip}","method":"${method}","path":"${path}","status":${status},"latency":"${latency}","bytes":${bytesSent}}` + "\n",
			TimeFormat: time.RFC3339,
			TimeZone:   "Local",
			Output:     os.Stdout,
		})
	}
	// dev mode
	return logger.New(logger.Config{
		Next:       skipQuiet,
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
		Output:     os.Stdout,
	})
}
