// Command watcher subscribes to the notification hub as an instructor or
// admin and prints each notice to the terminal. It is the terminal
// counterpart of the web client's toast layer, useful in development and for
// smoke-testing a running hub.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"classwire/pkg/client"
	"classwire/pkg/notice"
)

type Config struct {
	ServerURL string `envconfig:"SERVER_URL" default:"http://localhost:8080/api"`
	UserID    string `envconfig:"USER_ID" required:"true"`
	Role      string `envconfig:"ROLE" required:"true"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "watcher: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("classwire", &cfg); err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	presenter := notice.NewPresenter(printNotice)
	sub, err := client.New(client.User{ID: cfg.UserID, Role: cfg.Role}, presenter, client.Options{
		BaseURL: cfg.ServerURL,
		Logger:  slog.Default(),
	})
	if err != nil {
		return err
	}
	if err := sub.Start(); err != nil {
		return err
	}
	defer sub.Close()

	color.Info.Printf("watching %s as %s (%s), Ctrl+C to quit\n",
		cfg.ServerURL, cfg.UserID, cfg.Role)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	fmt.Println("bye")
	return nil
}

func printNotice(n notice.Notice) {
	switch n.Level {
	case notice.LevelSuccess:
		color.Success.Println(n.Text)
	default:
		color.Info.Println(n.Text)
	}
}
