package feed

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"rirblocks/internal/model"
)

// prefixForHostCount maps an IPv4 host-count to its prefix length. The
// exchange format does not guarantee a clean power of two, so any count
// outside this table drops the line instead of producing a bogus block.
var prefixForHostCount = map[int64]int{
	16777216: 8, 8388608: 9, 4194304: 10, 2097152: 11,
	1048576: 12, 524288: 13, 262144: 14, 131072: 15,
	65536: 16, 32768: 17, 16384: 18, 8192: 19,
	4096: 20, 2048: 21, 1024: 22, 512: 23,
	256: 24, 128: 25, 64: 26, 32: 27,
	16: 28, 8: 29, 4: 30, 2: 31, 1: 32,
}

// ParseLine turns one raw delegation-file line into an allocation record.
// Pure function: lines that match neither family grammar, or fail their
// family's validation, yield ok=false and no side effects.
//
// Recognized grammars (fields past the fifth are ignored):
//
//	<tag>|<CC>|ipv4|<a.b.c.d>|<host count>|...
//	<tag>|<CC>|ipv6|<hex:addr>|<prefix len>|...
func ParseLine(line string) (model.AllocationRecord, bool) {
	var rec model.AllocationRecord

	parts := strings.Split(line, "|")
	if len(parts) < 5 || !model.IsCountryCode(parts[1]) {
		return rec, false
	}

	country := strings.ToUpper(parts[1])
	addr := parts[3]

	switch parts[2] {
	case "ipv4":
		count, err := strconv.ParseInt(parts[4], 10, 64)
		if err != nil {
			return rec, false
		}
		prefixLen, ok := prefixForHostCount[count]
		if !ok {
			return rec, false
		}
		// To4 alone also accepts mapped hex-colon forms like
		// ::ffff:1.0.0.0; the ipv4 column must be a dotted quad.
		ip := net.ParseIP(addr)
		if ip == nil || ip.To4() == nil || strings.Contains(addr, ":") {
			return rec, false
		}
		rec = model.AllocationRecord{
			Country: country,
			Family:  model.FamilyIPv4,
			CIDR:    fmt.Sprintf("%s/%d", addr, prefixLen),
		}
		return rec, true

	case "ipv6":
		prefixLen, err := strconv.Atoi(parts[4])
		if err != nil || prefixLen <= 0 || prefixLen >= 128 {
			return rec, false
		}
		ip := net.ParseIP(addr)
		if ip == nil || ip.To4() != nil {
			return rec, false
		}
		rec = model.AllocationRecord{
			Country: country,
			Family:  model.FamilyIPv6,
			CIDR:    fmt.Sprintf("%s/%d", addr, prefixLen),
		}
		return rec, true
	}

	return rec, false
}

// Builder assembles a downloaded delegation file into an AllocationIndex.
type Builder struct {
	logger *zap.Logger
}

func NewBuilder(logger *zap.Logger) *Builder {
	return &Builder{logger: logger}
}

// Build runs every line through ParseLine and accumulates the accepted
// records. Unmatched lines are dropped, not errors; both family keys are
// present in the result even when the feed carries only one family. An
// unreadable body (for example a line past the scanner limit) is an
// error: a truncated index must not pass for a complete one.
func (b *Builder) Build(body []byte) (model.AllocationIndex, error) {
	index := model.NewAllocationIndex()

	lineCount := 0
	skipped := 0

	scanner := bufio.NewScanner(bytes.NewReader(body))
	const maxCapacity = 1024 * 1024
	buf := make([]byte, maxCapacity)
	scanner.Buffer(buf, maxCapacity)

	for scanner.Scan() {
		lineCount++
		line := scanner.Text()

		if len(line) == 0 || strings.HasPrefix(line, "#") {
			skipped++
			continue
		}

		rec, ok := ParseLine(line)
		if !ok {
			skipped++
			b.logger.Debug("skipping delegation line", zap.String("line", line))
			continue
		}

		index.Add(rec)
	}

	if err := scanner.Err(); err != nil {
		b.logger.Error("failed to read delegation feed body",
			zap.Int("lines_read", lineCount),
			zap.Error(err))
		return nil, fmt.Errorf("reading delegation feed body: %w", err)
	}

	b.logger.Info("Built allocation index",
		zap.Int("total_lines", lineCount),
		zap.Int("skipped_lines", skipped),
		zap.Int("ipv4_countries", len(index[model.FamilyIPv4])),
		zap.Int("ipv6_countries", len(index[model.FamilyIPv6])))

	return index, nil
}
