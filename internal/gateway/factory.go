package gateway

import (
	"fmt"

	"github.com/kiranshivaraju/qruntime/internal/config"
	"github.com/kiranshivaraju/qruntime/pkg/models"
)

// NewExecutor constructs the executor selected by cfg.Kind.
// Called once at server startup.
func NewExecutor(cfg config.ExecutorConfig) (models.Executor, error) {
	switch cfg.Kind {
	case "local":
		return NewLocalExecutor(cfg.LocalLatency), nil
	case "http":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("http executor requires a base URL")
		}
		return NewHTTPExecutor(cfg.BaseURL, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown executor %q: must be one of local, http", cfg.Kind)
	}
}
