package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"visage/internal/infra"
	"visage/internal/sqlinline"
)

func main() {
	var (
		idFlag      string
		grantFlag   int
		subDaysFlag int
	)

	flag.StringVar(&idFlag, "id", "", "user ID to update (UUID)")
	flag.IntVar(&grantFlag, "grant", 0, "credits to add to the user's balance")
	flag.IntVar(&subDaysFlag, "subscribe-days", 0, "extend the subscription this many days from now (0 leaves it untouched)")
	flag.Parse()

	userID := strings.TrimSpace(idFlag)
	if userID == "" {
		exitWithError(errors.New("-id is required"))
	}
	if grantFlag <= 0 && subDaysFlag <= 0 {
		exitWithError(errors.New("nothing to do: provide -grant and/or -subscribe-days"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "usercredits").Logger()
	runner := infra.NewSQLRunner(pool, logger)

	if grantFlag > 0 {
		tag, err := runner.Exec(ctx, sqlinline.QLedgerGrant, userID, grantFlag)
		if err != nil {
			exitWithError(fmt.Errorf("failed to grant credits: %w", err))
		}
		if tag.RowsAffected() == 0 {
			exitWithError(fmt.Errorf("user %s not found", userID))
		}
	}

	if subDaysFlag > 0 {
		until := time.Now().UTC().AddDate(0, 0, subDaysFlag)
		tag, err := runner.Exec(ctx, sqlinline.QSetSubscription, userID, until)
		if err != nil {
			exitWithError(fmt.Errorf("failed to set subscription: %w", err))
		}
		if tag.RowsAffected() == 0 {
			exitWithError(fmt.Errorf("user %s not found", userID))
		}
	}

	var balance int
	if err := runner.QueryRow(ctx, sqlinline.QSelectBalance, userID).Scan(&balance); err != nil {
		exitWithError(fmt.Errorf("failed to read balance: %w", err))
	}
	var subUntil time.Time
	if err := runner.QueryRow(ctx, sqlinline.QSelectSubscription, userID).Scan(&subUntil); err != nil {
		exitWithError(fmt.Errorf("failed to read subscription: %w", err))
	}

	fmt.Printf("User %s: balance=%d\n", userID, balance)
	if subUntil.After(time.Now()) {
		fmt.Printf("subscription_until=%s\n", subUntil.Format(time.RFC3339))
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
