// Package logging builds the structured logger used throughout the scanner,
// indexer, and analytics engine, and reproduces the comma-grouped numeric
// formatting original_source/logging.cpp's formatNumber helper provided for
// progress output.
//
// Grounded on original_source/logging.cpp (console+file logMessage,
// formatNumber, getDateString); the structured logger itself is
// go.uber.org/zap, adopted from _examples/AKJUS-bsc-erigon's go.mod.
package logging

import (
	"strconv"

	"go.uber.org/zap"
)

// New builds a console-and-file logger: the same human-readable console
// encoding goes to stdout and, when logPath is set, to logPath, mirroring
// logMessage's dual printf+fprintf behavior.
func New(logPath string) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = "" // offline batch tool; timestamps add noise to progress lines
	cfg.OutputPaths = []string{"stdout"}
	if logPath != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, logPath)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

// FormatNumber renders n as a comma-delimited string ("1,234,567"), the Go
// equivalent of logging.cpp's formatNumber.
func FormatNumber(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
