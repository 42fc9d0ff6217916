package es

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/elastic/go-elasticsearch/v9"
)

type Config struct {
	URL      string
	User     string
	Password string
}

// NewClient connects and checks the cluster answers before returning.
func NewClient(cfg Config, l *slog.Logger) (*elasticsearch.Client, error) {
	l = l.With("component", "es")
	l.Info("es_connecting", "url", cfg.URL, "user", cfg.User)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("es: create client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("es: info: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		l.Error("es_info_error", "status", res.StatusCode, "body", string(body))
		return nil, fmt.Errorf("es: error response: %s", res.Status())
	}

	l.Info("es_connected")
	return client, nil
}
