package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/glimte/typebus/serialization"
)

const maxEnvelopeSize = 4 << 20

type typeStats struct {
	typeName  string
	count     int
	bodyBytes int
}

type summary struct {
	total        int
	invalid      int
	byType       map[string]*typeStats
	correlations map[string]struct{}
}

func (s *summary) add(h serialization.Header) {
	if s.byType == nil {
		s.byType = make(map[string]*typeStats)
		s.correlations = make(map[string]struct{})
	}
	stats, ok := s.byType[h.Type]
	if !ok {
		stats = &typeStats{typeName: h.Type}
		s.byType[h.Type] = stats
	}
	stats.count++
	stats.bodyBytes += h.BodySize
	if h.CorrelationID != "" {
		s.correlations[h.CorrelationID] = struct{}{}
	}
}

// rows returns per-type stats, most frequent first.
func (s *summary) rows() []typeStats {
	rows := make([]typeStats, 0, len(s.byType))
	for _, stats := range s.byType {
		rows = append(rows, *stats)
	}
	slices.SortFunc(rows, func(a, b typeStats) int {
		if a.count != b.count {
			return b.count - a.count
		}
		return strings.Compare(a.typeName, b.typeName)
	})
	return rows
}

// inspect reads newline-delimited envelopes from r. Blank lines are skipped;
// lines that are not valid envelopes are counted and logged.
func inspect(r io.Reader, source string, s *summary, logger *slog.Logger) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEnvelopeSize)

	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		s.total++
		h, err := serialization.PeekHeader(data)
		if err != nil {
			s.invalid++
			logger.Warn("invalid envelope", "source", source, "line", line, "error", err)
			continue
		}

		logger.Debug("envelope",
			"source", source,
			"line", line,
			"messageType", h.Type,
			"correlationId", h.CorrelationID,
		)
		s.add(h)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", source, err)
	}
	return nil
}
