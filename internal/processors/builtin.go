package processors

import (
	"log/slog"

	"github.com/starford/assetcook/internal/handler"
	"github.com/starford/assetcook/internal/settings"
)

// Builtin returns every built-in handler in registration order. Adding a
// handler means adding it here.
func Builtin(set *settings.Settings, logger *slog.Logger) []handler.Handler {
	return []handler.Handler{
		NewCopy(logger),
		NewShader(set, logger),
		NewMesh(set, logger),
	}
}
