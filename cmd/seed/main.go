package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"finboard/internal/dto"
	"finboard/internal/repository"
	"finboard/internal/service"
	"finboard/internal/view"
	"finboard/pkg/auth"
	"finboard/pkg/config"
	"finboard/pkg/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type seedTransaction struct {
	daysAgo     int
	amount      string
	category    string
	description string
}

var demoTransactions = []seedTransaction{
	{0, "4.80", "food", "Morning coffee"},
	{1, "62.35", "groceries", "Weekly groceries"},
	{2, "2.90", "transport", "Bus ticket"},
	{3, "14.00", "entertainment", "Cinema"},
	{5, "89.99", "utilities", "Electricity bill"},
	{6, "23.50", "health", "Pharmacy"},
	{8, "45.00", "shopping", "Running shoes"},
	{9, "31.20", "food", "Dinner with friends"},
	{12, "54.10", "groceries", "Farmers market"},
	{14, "9.99", "entertainment", "Streaming subscription"},
	{15, "40.00", "transport", "Fuel"},
	{20, "12.00", "other", "Birthday card and wrapping"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	store, closeStore, err := repository.Open(ctx, cfg, logger.Get())
	if err != nil {
		logger.Fatal("Failed to open transaction store", zap.Error(err))
	}
	defer closeStore()

	userID := os.Getenv("SEED_USER_ID")
	if userID == "" {
		userID = "demo-user"
	}

	// Seeding goes through the service so input is validated like any other write.
	txService := service.NewTransactionService(
		store,
		nil,
		view.Nop{},
		service.NewValidator(time.Now),
		&cfg.Listing,
		cfg.Store.Timeout,
		logger.Get(),
	)

	logger.Info("Starting database seeding...", zap.String("user_id", userID))
	if existing := txService.Dashboard(ctx, userID); existing.TransactionCount > 0 {
		logger.Warn("User already has transactions, demo data is added on top",
			zap.Int("existing", existing.TransactionCount),
		)
	}

	today := time.Now().UTC()
	for _, seed := range demoTransactions {
		req := &dto.TransactionRequest{
			Amount:      decimal.RequireFromString(seed.amount),
			Category:    seed.category,
			Description: seed.description,
			Date:        today.AddDate(0, 0, -seed.daysAgo).Format(dto.DateLayout),
		}
		result, err := txService.Add(ctx, userID, req)
		if err != nil {
			logger.Fatal("Failed to seed transaction",
				zap.String("description", seed.description),
				zap.Error(err),
			)
		}
		logger.Debug("Seeded transaction",
			zap.String("transaction_id", result.ID),
			zap.String("description", seed.description),
		)
	}

	summary := txService.Dashboard(ctx, userID)
	logger.Info("Database seeding completed successfully!",
		zap.Int("transactions", summary.TransactionCount),
		zap.String("total_expenses", summary.TotalExpenses.StringFixed(2)),
	)

	token, err := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration).GenerateToken(userID, "demo", "demo@example.com")
	if err != nil {
		logger.Fatal("Failed to issue dev token", zap.Error(err))
	}
	fmt.Printf("Dev token for %s:\n%s\n", userID, token)
}
