// Command gentoken prints a signed access token for local testing:
//
//	JWT_SECRET=... go run ./cmd/gentoken -rol administrador -usuario ana
package main

import (
	"flag"
	"fmt"
	"time"

	"sigir/internal/config"
	"sigir/internal/middleware"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func main() {
	rol := flag.String("rol", "administrador", "cajero | supervisor | administrador")
	usuario := flag.String("usuario", "admin", "username embedded in the token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ttl := time.Duration(cfg.JWTExpirationHours) * time.Hour
	tok, err := middleware.NewToken(cfg.JWTSecret, uuid.NewString(), *usuario, *rol, ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to sign token")
	}
	fmt.Println(tok)
}
