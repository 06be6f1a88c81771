// Package engine wires configuration into the running session engine service.
package engine

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/polargamesbr/rpg-sub006/internal/engine/api"
	"github.com/polargamesbr/rpg-sub006/internal/engine/keyring"
	"github.com/polargamesbr/rpg-sub006/internal/engine/service"
	"github.com/polargamesbr/rpg-sub006/internal/engine/storage/sqlite"
	"github.com/polargamesbr/rpg-sub006/internal/engine/telemetry"
	"github.com/polargamesbr/rpg-sub006/internal/engine/token"
	platformcmd "github.com/polargamesbr/rpg-sub006/internal/platform/cmd"
)

// Config holds the engine command configuration.
type Config struct {
	HTTPAddr string        `env:"RPG_SUB006_ENGINE_HTTP_ADDR" envDefault:"localhost:8080"`
	DBPath   string        `env:"RPG_SUB006_ENGINE_DB_PATH" envDefault:"engine.db"`
	TokenKey string        `env:"RPG_SUB006_ENGINE_TOKEN_KEY"` // hex-encoded, 32 bytes
	TokenTTL time.Duration `env:"RPG_SUB006_ENGINE_TOKEN_TTL" envDefault:"24h"`
}

// ParseConfig loads the configuration from the environment, then lets flags
// override it.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite database path")
	fs.StringVar(&cfg.TokenKey, "token-key", cfg.TokenKey, "hex-encoded session token signing key")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "session token lifetime")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the engine HTTP service and blocks until ctx is canceled.
func Run(ctx context.Context, cfg Config) error {
	signingKey, err := hex.DecodeString(cfg.TokenKey)
	if err != nil {
		return fmt.Errorf("decode token key: %w", err)
	}
	if len(signingKey) == 0 {
		return fmt.Errorf("token signing key is required (generate one with envelope-key)")
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("msg=close_storage_failed err=%v", err)
		}
	}()

	signer, err := token.NewSigner(signingKey, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("init token signer: %w", err)
	}
	keys, err := keyring.NewManager(signer)
	if err != nil {
		return fmt.Errorf("init key manager: %w", err)
	}

	svc, err := service.New(service.Config{
		Quests:     store,
		Battles:    store,
		Characters: store,
		Keys:       keys,
		Signer:     signer,
		Emitter:    telemetry.NewEmitter(store),
	})
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}

	server := api.NewServer(cfg.HTTPAddr, svc)
	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceEngine, server.Run)
}
