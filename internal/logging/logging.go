package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup points the global logger at stdout as JSON, which CloudWatch keeps
// one record per line. Unknown levels fall back to info.
func Setup(level string) {
	SetupTo(os.Stdout, level, os.Getenv("AWS_LAMBDA_FUNCTION_NAME"))
}

func SetupTo(w io.Writer, level, function string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	ctx := zerolog.New(w).With().Timestamp()
	if function != "" {
		ctx = ctx.Str("function", function)
	}
	log.Logger = ctx.Logger()
}
