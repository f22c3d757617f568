package main

import (
	"fmt"
	"os"

	"github.com/feedback-intel/core/internal/app"
	"github.com/feedback-intel/core/internal/config"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	port := config.GetEnv("PORT", "8080", a.Log)
	a.Log.Info("server listening", "port", port)
	if err := a.Run(":" + port); err != nil {
		a.Log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
