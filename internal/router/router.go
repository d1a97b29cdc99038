package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	handlers "github.com/lgndcraft2/ledger/internal/http"
)

type Router struct {
	AuthHandler   *handlers.AuthHandler
	LedgerHandler *handlers.LedgerHandler
	AuthMW        fiber.Handler

	WriteLimitMax    int
	WriteLimitWindow time.Duration
}

func (r *Router) RegisterRoutes(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	api := app.Group("/api")

	if r.AuthHandler != nil {
		authLimit := RateLimitAuth()
		api.Post("/auth/login", authLimit, r.AuthHandler.Login)
		api.Post("/auth/verify", authLimit, r.AuthHandler.Verify)
	}

	if r.LedgerHandler != nil && r.AuthMW != nil {
		writeLimit := RateLimitWrite(r.WriteLimitMax, r.WriteLimitWindow)
		api.Get("/dashboard", r.AuthMW, r.LedgerHandler.Dashboard)
		api.Post("/transaction/add", r.AuthMW, writeLimit, r.LedgerHandler.AddTransaction)
		api.Get("/summary", r.AuthMW, r.LedgerHandler.Summary)
		api.Get("/debts", r.AuthMW, r.LedgerHandler.Debts)
		api.Post("/debts/pay", r.AuthMW, writeLimit, r.LedgerHandler.PayDebt)
		api.Get("/statement", r.AuthMW, r.LedgerHandler.Statement)
	}
}
