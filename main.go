package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/km-arc/go-injector/app/greeting"
	"github.com/km-arc/go-injector/framework/app"
	"github.com/km-arc/go-injector/framework/container"
	gohttp "github.com/km-arc/go-injector/framework/http"
	"github.com/km-arc/go-injector/framework/routing"
	"github.com/km-arc/go-injector/framework/types"
)

func main() {
	application, err := app.New() // loads .env automatically
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	if err := application.Use(greeting.Module); err != nil {
		application.Logger().Fatal("register greeting module", zap.Error(err))
	}

	r := application.Router()

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		info := map[string]any{
			"app": application.Config().App.Name,
			"env": application.Environment(),
		}
		if application.IsDebug() {
			info["container"] = application.ID()
			info["interfaces"] = application.Interfaces()
		}
		gohttp.NewResponse(w).Success(info)
	})

	r.Prefix("/api", func(api *routing.Router) {

		// GET /api/greet/{style}?name=Ada
		api.Get("/greet/{style}", func(w http.ResponseWriter, req *http.Request) {
			res := gohttp.NewResponse(w)

			g, err := container.Resolve[greeting.Greeter](application.Container, routing.Param(req, "style"))
			if err != nil {
				res.ResolutionError(err)
				return
			}
			counter, err := container.Resolve[*greeting.Counter](application.Container, "")
			if err != nil {
				res.ResolutionError(err)
				return
			}

			name := req.URL.Query().Get("name")
			if name == "" {
				name = "stranger"
			}
			res.Success(map[string]any{
				"greeting": g.Greet(name),
				"count":    counter.Inc(),
			})
		})

		// GET /api/log-path
		api.Get("/log-path", func(w http.ResponseWriter, req *http.Request) {
			res := gohttp.NewResponse(w)

			path, err := application.Resolve(types.String, "log_path")
			if err != nil {
				res.ResolutionError(err)
				return
			}
			res.Success(path)
		})
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		application.Logger().Fatal("server error", zap.Error(err))
	}
}
