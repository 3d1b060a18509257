package write

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// LoggingWriter logs every write at debug level.
type LoggingWriter struct {
	baseWriter Writer
	logger     zerolog.Logger
}

func NewLoggingWriter(baseWriter Writer, logger zerolog.Logger) *LoggingWriter {
	if baseWriter == nil {
		baseWriter = NewFileWriter()
	}
	return &LoggingWriter{
		baseWriter: baseWriter,
		logger:     logger,
	}
}

func (lw *LoggingWriter) Write(path string, content []byte, options Options) (Outcome, error) {
	start := time.Now()
	outcome, err := lw.baseWriter.Write(path, content, options)
	duration := time.Since(start)

	switch {
	case errors.Is(err, ErrSkipped):
		lw.logger.Debug().Str("path", path).Msg("file exists, skipped")
	case err != nil:
		lw.logger.Debug().Err(err).Str("path", path).Dur("took", duration).Msg("write failed")
	default:
		lw.logger.Debug().
			Str("path", path).
			Int("bytes", len(content)).
			Stringer("outcome", outcome).
			Dur("took", duration).
			Msg("wrote file")
	}

	return outcome, err
}
