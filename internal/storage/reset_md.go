// ABOUTME: Markdown-based reset history storage.
// ABOUTME: Stores each attempt as a markdown file with YAML frontmatter in date-based directories.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389-research/streakhub/internal/calendar"
	"github.com/2389-research/streakhub/internal/models"
)

// ResetMDStore stores reset records under <dataDir>/resets/YYYY-MM-DD/.
type ResetMDStore struct {
	root string
}

// resetFrontmatter is the YAML frontmatter for reset record files.
type resetFrontmatter struct {
	ID          string `yaml:"id"`
	Date        string `yaml:"date"`
	EntityID    string `yaml:"entity_id"`
	Source      string `yaml:"source"`
	EventDate   string `yaml:"event_date"`
	StreakStart string `yaml:"streak_start"`
	Outcome     string `yaml:"outcome"`
	DurationMS  int64  `yaml:"duration_ms"`
}

// NewResetMDStore creates a reset store rooted in dataDir.
func NewResetMDStore(dataDir string) (*ResetMDStore, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	return &ResetMDStore{root: filepath.Join(dataDir, "resets")}, nil
}

// Root returns the directory holding the date folders.
func (s *ResetMDStore) Root() string {
	return s.root
}

// Record persists a reset record and sets its FilePath.
func (s *ResetMDStore) Record(rec *models.ResetRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	dateDir := rec.CreatedAt.Format(calendar.ISOLayout)
	timeStr := rec.CreatedAt.Format("15-04-05-000000")
	shortID := rec.ID.String()[:8]
	path := filepath.Join(s.root, dateDir, timeStr+"-"+shortID+".md")

	fm := resetFrontmatter{
		ID:          rec.ID.String(),
		Date:        FormatTime(rec.CreatedAt),
		EntityID:    rec.EntityID,
		Source:      rec.Source,
		EventDate:   rec.EventDate.String(),
		StreakStart: rec.StreakStart.String(),
		Outcome:     rec.Outcome,
		DurationMS:  rec.Duration.Milliseconds(),
	}

	content, err := RenderFrontmatter(fm, renderResetBody(rec))
	if err != nil {
		return fmt.Errorf("failed to render frontmatter: %w", err)
	}
	if err := WriteFileAtomic(path, []byte(content)); err != nil {
		return fmt.Errorf("failed to write reset record: %w", err)
	}

	rec.FilePath = path
	return nil
}

// List returns reset records newest first.
func (s *ResetMDStore) List(opts ListOptions) ([]*models.ResetRecord, error) {
	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return nil, nil
	}

	dateDirs, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.root, err)
	}

	var records []*models.ResetRecord
	for _, dateDir := range dateDirs {
		if !dateDir.IsDir() {
			continue
		}
		if _, err := calendar.Parse(dateDir.Name()); err != nil {
			continue
		}

		dirPath := filepath.Join(s.root, dateDir.Name())
		files, err := os.ReadDir(dirPath)
		if err != nil {
			continue
		}
		for _, file := range files {
			if file.IsDir() || !strings.HasSuffix(file.Name(), ".md") {
				continue
			}
			filePath := filepath.Join(dirPath, file.Name())
			data, err := os.ReadFile(filePath)
			if err != nil {
				continue
			}
			rec, err := parseResetRecord(filePath, string(data))
			if err != nil {
				continue
			}
			if opts.EntityID != "" && rec.EntityID != opts.EntityID {
				continue
			}
			records = append(records, rec)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	limit := opts.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Close releases any resources held by the store.
func (s *ResetMDStore) Close() error {
	return nil
}

// parseResetRecord parses a markdown file into a ResetRecord.
func parseResetRecord(path, content string) (*models.ResetRecord, error) {
	var fm resetFrontmatter
	body, err := DecodeFrontmatter([]byte(content), &fm)
	if err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter in %s: %w", path, err)
	}

	id, err := uuid.Parse(fm.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in frontmatter: %w", err)
	}
	createdAt, err := ParseTime(fm.Date)
	if err != nil {
		return nil, err
	}
	eventDate, err := calendar.Parse(fm.EventDate)
	if err != nil {
		return nil, fmt.Errorf("invalid event date: %w", err)
	}
	start, err := calendar.Parse(fm.StreakStart)
	if err != nil {
		return nil, fmt.Errorf("invalid streak start: %w", err)
	}

	return &models.ResetRecord{
		ID:          id,
		EntityID:    fm.EntityID,
		Source:      fm.Source,
		EventDate:   eventDate,
		StreakStart: start,
		Outcome:     fm.Outcome,
		Error:       parseErrorSection(body),
		Duration:    time.Duration(fm.DurationMS) * time.Millisecond,
		CreatedAt:   createdAt,
		FilePath:    path,
	}, nil
}

// renderResetBody writes a short human summary, plus the error when the call failed.
func renderResetBody(rec *models.ResetRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\nEvent on %s, new streak starts %s.\n", rec.EventDate, rec.StreakStart)
	if rec.Error != "" {
		fmt.Fprintf(&sb, "\n## Error\n%s\n", rec.Error)
	}
	return sb.String()
}

func parseErrorSection(body string) string {
	_, after, ok := strings.Cut(body, "## Error\n")
	if !ok {
		return ""
	}
	return strings.TrimSpace(after)
}
