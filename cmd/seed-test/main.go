package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/stemsi/exstem-attempt/internal/config"
	"github.com/stemsi/exstem-attempt/internal/database"
	"github.com/stemsi/exstem-attempt/internal/logger"
	"github.com/stemsi/exstem-attempt/internal/model"
	"github.com/stemsi/exstem-attempt/internal/repository"
)

func main() {
	title := flag.String("title", "Sample Test", "test title")
	start := flag.String("start", "", "window start in RFC3339 (default: now)")
	duration := flag.Int("duration", 60, "duration in minutes")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	startTime := time.Now().UTC()
	if *start != "" {
		t, err := time.Parse(time.RFC3339, *start)
		if err != nil {
			log.Fatal().Err(err).Str("start", *start).Msg("Invalid start time")
		}
		startTime = t.UTC()
	}

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	testRepo := repository.NewTestRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	test := &model.Test{
		Title:           *title,
		StartTime:       startTime,
		DurationMinutes: *duration,
		TotalMarks:      2,
	}
	if err := testRepo.Create(ctx, test); err != nil {
		log.Fatal().Err(err).Msg("Failed to create test")
	}

	questions := []model.Question{
		{
			Prompt:        "Which planet is known as the red planet?",
			AnswerType:    model.AnswerTypeSingleChoice,
			Options:       []string{"A", "B", "C", "D"},
			CorrectAnswer: model.AnswerValue{"B"},
			Marks:         1,
			OrderNum:      1,
		},
		{
			Prompt:        "What is 2 + 2?",
			AnswerType:    model.AnswerTypeNumeric,
			CorrectAnswer: model.AnswerValue{"4"},
			Marks:         1,
			OrderNum:      2,
		},
	}

	fmt.Printf("=== Seeded test %s ===\n", test.ID)
	for i := range questions {
		q := &questions[i]
		q.TestID = test.ID
		if err := q.Validate(); err != nil {
			log.Fatal().Err(err).Int("order", q.OrderNum).Msg("Invalid seed question")
		}
		if err := questionRepo.Create(ctx, q); err != nil {
			log.Fatal().Err(err).Msg("Failed to create question")
		}
		fmt.Printf("  question %d: %s (%s, correct %v)\n", q.OrderNum, q.ID, q.AnswerType, []string(q.CorrectAnswer))
	}
	fmt.Printf("Window: %s → %s\n", test.StartTime.Format(time.RFC3339), test.WindowEnd().Format(time.RFC3339))
}
