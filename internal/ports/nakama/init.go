package nakama

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"beergame/internal/app"
	"beergame/internal/config"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule loads the game config and registers the beer game RPCs.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)

	if err := config.LoadGameConfig(env[config.EnvConfigPath]); err != nil {
		logger.Error("Failed to load game config: %v", err)
		return err
	}
	cfg := *config.GetGameConfig()
	if err := cfg.ApplyEnv(env); err != nil {
		logger.Error("Invalid runtime env: %v", err)
		return err
	}

	if cfg.TicketSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return err
		}
		cfg.TicketSecret = secret
		logger.Warn("No %s configured; team tickets will stop working when the server restarts.", config.EnvTicketSecret)
	}
	tickets, err := app.NewTicketService(cfg.TicketSecret, time.Duration(cfg.TicketTTLHours)*time.Hour)
	if err != nil {
		return err
	}

	store := NewSessionStorage(nk, time.Duration(cfg.RetentionHours)*time.Hour)
	service := app.NewService(store, nil, app.WithTickets(tickets), app.WithDefaults(cfg.Defaults))
	if err := NewModule(service, NewEventAdapter(nk)).RegisterRPCs(initializer); err != nil {
		return err
	}

	logger.Info("Beer game module loaded (pattern %s, %d rounds, retention %dh).",
		cfg.Defaults.DemandPatternKey, cfg.Defaults.TotalRounds, cfg.RetentionHours)
	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate ticket secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
