package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tickettally/ticket-engine/internal/domain"
)

type slaSeedFile struct {
	SLA []slaSeedEntry `yaml:"sla"`
}

type slaSeedEntry struct {
	Priority            string `yaml:"priority"`
	ResponseTimeHours   int    `yaml:"response_time_hours"`
	ResolutionTimeHours int    `yaml:"resolution_time_hours"`
}

// LoadSLASeed reads SLA budgets from a YAML file. A missing file yields no rows.
func LoadSLASeed(path string) ([]domain.SLAConfig, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sla seed: %w", err)
	}
	return ParseSLASeed(raw)
}

// ParseSLASeed decodes the YAML seed document.
func ParseSLASeed(raw []byte) ([]domain.SLAConfig, error) {
	var doc slaSeedFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode sla seed: %w", err)
	}

	seen := make(map[domain.TicketPriority]struct{}, len(doc.SLA))
	result := make([]domain.SLAConfig, 0, len(doc.SLA))
	for _, entry := range doc.SLA {
		priority := domain.TicketPriority(strings.ToUpper(strings.TrimSpace(entry.Priority)))
		if !priority.Valid() {
			return nil, fmt.Errorf("sla seed: unknown priority %q", entry.Priority)
		}
		if _, dup := seen[priority]; dup {
			return nil, fmt.Errorf("sla seed: duplicate priority %s", priority)
		}
		if entry.ResponseTimeHours < 0 || entry.ResolutionTimeHours < 0 {
			return nil, fmt.Errorf("sla seed: negative budget for %s", priority)
		}
		seen[priority] = struct{}{}
		result = append(result, domain.SLAConfig{
			Priority:            priority,
			ResponseTimeHours:   entry.ResponseTimeHours,
			ResolutionTimeHours: entry.ResolutionTimeHours,
		})
	}
	return result, nil
}
