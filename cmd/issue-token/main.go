package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/stemsi/exstem-attempt/internal/config"
	"github.com/stemsi/exstem-attempt/internal/logger"
	"github.com/stemsi/exstem-attempt/internal/service"
)

// Mints an examinee bearer token signed with JWT_SECRET, for local use only.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/issue-token <examinee-id>")
		os.Exit(1)
	}

	examineeID, err := strconv.Atoi(os.Args[1])
	if err != nil || examineeID <= 0 {
		log.Fatal().Str("arg", os.Args[1]).Msg("Examinee id must be a positive integer")
	}

	token, err := service.NewAuthService(cfg).GenerateStudentToken(examineeID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sign token")
	}
	fmt.Println(token)
}
