package cli

import (
	"context"
	"fmt"
	"os"
)

const usage = `usage: dealerdesk jobs <command>

commands:
  trigger <task>   enqueue a job by task type
  stats            print default queue counters
  scheduled        list scheduled tasks
`

// Run dispatches a command-line invocation. It exits the process
// with a non-zero status on failure.
func Run(args []string) {
	if len(args) < 2 || args[0] != "jobs" {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	jobsCLI, err := NewJobsCLI(redisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jobs cli: %v\n", err)
		os.Exit(1)
	}
	defer jobsCLI.Close()

	ctx := context.Background()
	switch args[1] {
	case "trigger":
		if len(args) < 3 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		info, err := jobsCLI.Trigger(ctx, args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "trigger: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "stats: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	case "scheduled":
		tasks, err := jobsCLI.ListScheduled(ctx, 20)
		if err != nil {
			fmt.Fprintf(os.Stderr, "scheduled: %v\n", err)
			os.Exit(1)
		}
		for _, t := range tasks {
			fmt.Printf("%s id=%s next=%s\n", t.Type, t.ID, t.NextProcessAt.Format("2006-01-02 15:04:05"))
		}
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}
