package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/stemsi/cat-backend/internal/config"
	"github.com/stemsi/cat-backend/internal/database"
	"github.com/stemsi/cat-backend/internal/logger"
	"github.com/stemsi/cat-backend/internal/model"
	"github.com/stemsi/cat-backend/internal/repository"
	"github.com/stemsi/cat-backend/internal/service"
)

type demoQuestion struct {
	text        string
	explanation string
	difficulty  model.Difficulty
	answers     []string
	correct     int
}

var demoQuestions = []demoQuestion{
	{
		text:        "Which keyword starts a new goroutine?",
		explanation: "The go statement runs a function call concurrently.",
		difficulty:  model.DifficultyEasy,
		answers:     []string{"go", "async", "spawn", "thread"},
		correct:     0,
	},
	{
		text:        "What is the zero value of a map variable?",
		explanation: "An uninitialized map is nil; reads work, writes panic.",
		difficulty:  model.DifficultyEasy,
		answers:     []string{"An empty map", "nil", "0", "It does not compile"},
		correct:     1,
	},
	{
		text:        "When do deferred calls run?",
		explanation: "Deferred calls run when the surrounding function returns, in LIFO order.",
		difficulty:  model.DifficultyMedium,
		answers:     []string{"Immediately", "When the program exits", "When the surrounding function returns", "At the next garbage collection"},
		correct:     2,
	},
	{
		text:        "What happens when sending on a closed channel?",
		explanation: "Sending on a closed channel panics.",
		difficulty:  model.DifficultyMedium,
		answers:     []string{"The value is dropped", "It blocks forever", "It panics", "It returns an error"},
		correct:     2,
	},
	{
		text:        "Which statement about interface values holding a nil pointer is true?",
		explanation: "An interface holding a typed nil pointer is itself non-nil.",
		difficulty:  model.DifficultyHard,
		answers:     []string{"The interface equals nil", "The interface is not nil", "It cannot be assigned", "Calling any method panics"},
		correct:     1,
	},
}

func main() {
	var adminEmail string
	var takers int
	flag.StringVar(&adminEmail, "admin", "", "Email of the admin who will own the demo test")
	flag.IntVar(&takers, "takers", 5, "Number of demo test-taker accounts to create")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if adminEmail == "" {
		log.Fatal().Msg("-admin is required; create one with cmd/create-admin first")
	}

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	testRepo := repository.NewTestRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	authService := service.NewAuthService(cfg, userRepo, nil, log)
	testService := service.NewTestService(testRepo, log)
	questionService := service.NewQuestionService(questionRepo, testRepo, log)

	admin, err := userRepo.GetByEmail(ctx, adminEmail)
	if err != nil {
		log.Fatal().Err(err).Str("email", adminEmail).Msg("Admin not found")
	}
	if admin.Role != model.RoleAdmin {
		log.Fatal().Str("email", adminEmail).Msg("User is not an admin")
	}
	caller := service.Caller{UserID: admin.ID, Role: admin.Role}

	fmt.Println("=== Seeding demo test ===")

	duration, passing := 10, 60
	total := len(demoQuestions)
	test, err := testService.Create(ctx, caller, model.CreateTestRequest{
		Title:          "Go Fundamentals",
		Description:    "A short warm-up on core Go semantics.",
		Category:       "Programming",
		Duration:       &duration,
		TotalQuestions: &total,
		PassingScore:   &passing,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create test")
	}
	fmt.Printf("Created test %q with ID: %s\n", test.Title, test.ID)

	for i, dq := range demoQuestions {
		answers := make([]model.AnswerInput, len(dq.answers))
		for j, a := range dq.answers {
			answers[j] = model.AnswerInput{Text: a, IsCorrect: j == dq.correct}
		}
		points := 1
		if dq.difficulty == model.DifficultyHard {
			points = 2
		}
		_, err := questionService.Create(ctx, model.QuestionRequest{
			Text:        dq.text,
			Explanation: dq.explanation,
			Difficulty:  dq.difficulty,
			Category:    "Go",
			Points:      &points,
			TestID:      &test.ID,
			Answers:     answers,
		})
		if err != nil {
			log.Fatal().Err(err).Int("question", i+1).Msg("Failed to create question")
		}
	}
	fmt.Printf("Added %d questions\n", len(demoQuestions))

	created := 0
	for i := range takers {
		email := fmt.Sprintf("taker%d@example.com", i+1)
		_, err := authService.Register(ctx, model.RegisterRequest{
			Name:     fmt.Sprintf("Demo Taker %d", i+1),
			Email:    email,
			Password: "password123",
		})
		if err != nil {
			fmt.Printf("Skipping %s: %v\n", email, err)
			continue
		}
		created++
	}

	fmt.Printf("\nSeed completed! Created %d/%d test-taker accounts (password: password123).\n", created, takers)
}
