package observability

import (
	"log/slog"
	"os"
	"strings"
)

func NewLogger(env string) *slog.Logger {
	level := slog.LevelInfo

	if env == "dev" {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(withSpanIDs(handler))
}

// EmailDomain returns only the domain part of an address so log lines can
// say which provider a signup came from without recording the address.
func EmailDomain(email string) string {
	_, domain, ok := strings.Cut(email, "@")

	if !ok {
		return "invalid"
	}

	return strings.ToLower(domain)
}
