package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	ServerPort            string
	DatabasePath          string
	AdviceAPIURL          string
	AdviceAPIKey          string
	ReminderTime          string
	ReminderLookaheadDays int
}

func Load() (*Config, error) {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "loantrack.db"
	}

	reminderTime := os.Getenv("REMINDER_TIME")
	if reminderTime == "" {
		reminderTime = "09:00"
	}

	lookahead := 3
	if v := os.Getenv("REMINDER_LOOKAHEAD_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("REMINDER_LOOKAHEAD_DAYS must be a number: %w", err)
		}
		lookahead = n
	}

	return &Config{
		ServerPort:            port,
		DatabasePath:          dbPath,
		AdviceAPIURL:          os.Getenv("ADVICE_API_URL"),
		AdviceAPIKey:          os.Getenv("ADVICE_API_KEY"),
		ReminderTime:          reminderTime,
		ReminderLookaheadDays: lookahead,
	}, nil
}
