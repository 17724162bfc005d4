package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"vision-relay-go/internal/bootstrap"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: $VISION_RELAY_CONFIG or ./config.yaml)")
	issueToken := flag.String("issue-token", "", "print an API bearer token for the given client id and exit")
	flag.Parse()

	opts := bootstrap.Options{ConfigPath: *configPath}

	if *issueToken != "" {
		token, err := bootstrap.IssueToken(opts, *issueToken)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	fmt.Printf("[%s] [INFO] [BOOT] starting vision-relay...\n", time.Now().Format("2006-01-02 15:04:05.000"))
	if err := bootstrap.Run(context.Background(), opts); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "vision-relay failed: %v\n", err)
		os.Exit(1)
	}
}
