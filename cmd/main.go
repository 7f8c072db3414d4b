// cmd/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"cp1-controllers/internal/cli"
	"cp1-controllers/internal/config"
	"cp1-controllers/internal/di"
)

func main() {
	// 종료 신호를 받으면 진행 중인 미션/서버를 정리
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(config.Load, di.NewContainer)
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
