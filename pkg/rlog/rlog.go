// Package rlog provides structured logging for the record container
// pipeline using zerolog.
package rlog

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/riegeli-go/riegeli/pkg/humanfmt"
)

var logger *zerolog.Logger

func init() {
	l := zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	logger = &l
}

// Init configures the global logger. If debug is true, sets log level to
// Debug. If human is true, uses a human-friendly console writer instead
// of JSON.
func Init(debug, human bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	var output zerolog.LevelWriter
	if human {
		output = zerolog.LevelWriterAdapter{Writer: zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}}
	} else {
		output = zerolog.LevelWriterAdapter{Writer: os.Stderr}
	}
	l := zerolog.New(output).Level(level).With().Timestamp().Logger()
	logger = &l
}

// L returns the base logger.
func L() *zerolog.Logger { return logger }

// SetLogger overrides the global logger (useful for testing).
func SetLogger(l zerolog.Logger) { logger = &l }

// ChunkWritten logs a chunk having been appended to a file.
func ChunkWritten(log zerolog.Logger, chunkType string, offset int64, numRecords uint64, dataSize uint64) {
	log.Debug().
		Str("event", "chunk_written").
		Str("chunk_type", chunkType).
		Int64("offset", offset).
		Uint64("num_records", numRecords).
		Str("data_size_h", humanfmt.Bytes(int64(dataSize))).
		Msg("chunk written")
}

// RecoverAttempted logs a Recover call and its outcome.
func RecoverAttempted(log zerolog.Logger, begin, end int64, err error) {
	e := log.Warn().
		Str("event", "recover").
		Int64("skip_begin", begin).
		Int64("skip_end", end).
		Str("skipped_h", humanfmt.Bytes(end-begin))
	if err != nil {
		e.Err(err).Msg("recover failed")
		return
	}
	e.Msg("recovered past corrupted region")
}
