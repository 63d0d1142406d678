package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"rqc-adapter-api/config"
	"rqc-adapter-api/services"

	"github.com/joho/godotenv"
)

// retry-sweep walks the delayed-call ledger once and exits. Meant to be run
// from cron, roughly once a day.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config.ReloadMailerConfig()
	config.InitDB()

	logFile, _ := config.InitLogging()
	if logFile != nil {
		defer logFile.Close()
	}

	var dryRun bool
	flag.BoolVar(&dryRun, "dry-run", false, "list pending delayed calls without attempting delivery")
	flag.Parse()

	grading := services.NewGradingService(nil, nil)
	delayed := grading.DelayedCalls()

	if dryRun {
		pending, err := delayed.Pending(context.Background())
		if err != nil {
			log.Fatalf("failed to load delayed calls: %v", err)
		}
		for _, item := range pending {
			fmt.Printf("article=%d reason=%s remaining_tries=%d last_attempt=%s\n",
				item.ArticleID, item.FailureReason, item.RemainingTries, item.LastAttemptAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("Pending delayed calls: %d\n", len(pending))
		return
	}

	summary, err := delayed.ProcessDelayedCalls(context.Background())
	if err != nil {
		log.Fatalf("delayed call sweep failed: %v", err)
	}

	fmt.Printf("Sweep %s finished\n", summary.RunID)
	fmt.Printf("Processed: %d (skipped: %d)\n", summary.Processed, summary.Skipped)
	fmt.Printf("Delivered: %d, still failing: %d, exhausted: %d\n",
		summary.Succeeded, summary.Failed, summary.Exhausted)

	if summary.Errors > 0 {
		os.Exit(2)
	}
}
