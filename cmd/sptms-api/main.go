package main

import (
	"context"
	"errors"
	"log/slog"
)

func main() {
	app := mustBootstrapAPI()
	defer app.Close()

	if err := app.Run(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("sptms-api stopped", "error", err.Error())
	}
}
