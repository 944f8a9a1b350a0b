package persona

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/theimaginaryfoundation/remember-o-bot/persona/fileutils"
)

// MemoryBookOptions controls how a profile's memories are rendered to markdown.
type MemoryBookOptions struct {
	OutDir    string
	MaxBytes  int // default ~64KB per shard
	Overwrite bool

	// Chronological orders entries by timestamp instead of by importance.
	Chronological bool

	// IncludeRelationship opens the first shard with the relationship details.
	IncludeRelationship bool
}

// MemoryIndexRecord maps one memory to its shard file and anchor.
type MemoryIndexRecord struct {
	Anchor       string `json:"anchor"`
	ShardFile    string `json:"shard_file"`
	Importance   int    `json:"importance"`
	TimestampISO string `json:"timestamp_iso8601,omitempty"`

	// Excerpt is a shortened copy of the content for quick scanning.
	Excerpt string `json:"excerpt"`
}

// WriteMemoryBook writes the profile's memories into markdown shards of roughly MaxBytes and
// returns one index record per memory. Use WriteMemoryIndex to persist the index.
func WriteMemoryBook(p PersonalityProfile, opts MemoryBookOptions) ([]MemoryIndexRecord, error) {
	if opts.OutDir == "" {
		return nil, errors.New("WriteMemoryBook: OutDir is empty")
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 64 * 1024
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("WriteMemoryBook: mkdir OutDir: %w", err)
	}

	memories := append([]Memory(nil), p.Memories...)
	if opts.Chronological {
		sort.SliceStable(memories, func(i, j int) bool {
			return memories[i].Timestamp.Before(memories[j].Timestamp)
		})
	}

	var (
		shardNum     = 1
		curr         strings.Builder
		currFilename = ""
		index        []MemoryIndexRecord
	)

	flush := func() error {
		if curr.Len() == 0 {
			return nil
		}
		outPath := filepath.Join(opts.OutDir, currFilename)
		if !opts.Overwrite && fileutils.FileExists(outPath) {
			return fmt.Errorf("WriteMemoryBook: shard exists: %s", outPath)
		}
		if err := fileutils.WriteFileAtomicSameDir(outPath, []byte(curr.String()), 0o644); err != nil {
			return fmt.Errorf("WriteMemoryBook: write shard: %w", err)
		}
		shardNum++
		curr.Reset()
		currFilename = ""
		return nil
	}

	startShard := func() {
		currFilename = memoryShardName(shardNum)
		fmt.Fprintf(&curr, "# Memory Book %04d\n\n", shardNum)
	}

	if opts.IncludeRelationship {
		startShard()
		curr.WriteString(renderRelationshipMarkdown(p))
	}

	for i, m := range memories {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		section, anchor := renderMemoryMarkdown(i+1, m)

		if curr.Len() > 0 && curr.Len()+len(section) > opts.MaxBytes {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		if curr.Len() == 0 {
			startShard()
		}
		curr.WriteString(section)

		index = append(index, MemoryIndexRecord{
			Anchor:       anchor,
			ShardFile:    currFilename,
			Importance:   m.Importance,
			TimestampISO: timestampISO8601(m.Timestamp),
			Excerpt:      fileutils.Truncate(flattenNewlines(content), 200),
		})
	}

	if err := flush(); err != nil {
		return nil, err
	}
	return index, nil
}

// WriteMemoryIndex writes index records as JSONL.
func WriteMemoryIndex(path string, records []MemoryIndexRecord, overwrite bool) error {
	if path == "" {
		return errors.New("WriteMemoryIndex: path is empty")
	}
	if !overwrite && fileutils.FileExists(path) {
		return fmt.Errorf("WriteMemoryIndex: file exists: %s", path)
	}
	if err := fileutils.WriteJSONLinesAtomic(path, records); err != nil {
		return fmt.Errorf("WriteMemoryIndex: %w", err)
	}
	return nil
}

func memoryShardName(n int) string {
	return fmt.Sprintf("memories_%04d.md", n)
}

func renderMemoryMarkdown(n int, m Memory) (section string, anchor string) {
	anchor = fmt.Sprintf("memory-%03d", n)
	iso := timestampISO8601(m.Timestamp)
	if iso != "" {
		anchor += "-" + sanitizeAnchor(iso[:10])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<a id=\"%s\"></a>\n", anchor)
	fmt.Fprintf(&b, "## %s\n\n", escapeMarkdownInline(fileutils.Truncate(m.Content, 60)))
	fmt.Fprintf(&b, "- importance: `%d`\n", m.Importance)
	if iso != "" {
		fmt.Fprintf(&b, "- timestamp: `%s`\n", iso)
	}
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(m.Content))
	b.WriteString("\n\n---\n\n")
	return b.String(), anchor
}

func renderRelationshipMarkdown(p PersonalityProfile) string {
	rd := p.RelationshipDetails
	var b strings.Builder
	b.WriteString("## Relationship\n\n")
	if s := strings.TrimSpace(rd.HowWeMet); s != "" {
		fmt.Fprintf(&b, "**how we met**: %s\n\n", escapeMarkdownInline(s))
	}
	writeList := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "### %s\n", title)
		for _, it := range items {
			if it = strings.TrimSpace(it); it != "" {
				fmt.Fprintf(&b, "- %s\n", escapeMarkdownInline(it))
			}
		}
		b.WriteString("\n")
	}
	writeList("Favorite moments", rd.FavoriteMoments)
	writeList("Inside jokes", rd.InsideJokes)
	if len(rd.PetNames) > 0 {
		fmt.Fprintf(&b, "**pet names**: %s\n\n", escapeMarkdownInline(strings.Join(rd.PetNames, ", ")))
	}
	b.WriteString("---\n\n")
	return b.String()
}

func timestampISO8601(t time.Time) string {
	// Zero and pre-epoch values are treated as unset.
	if t.IsZero() || t.Unix() <= 0 {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func sanitizeAnchor(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return "memory"
	}
	var out strings.Builder
	out.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			out.WriteRune(r)
		} else {
			out.WriteByte('-')
		}
	}
	return strings.Trim(out.String(), "-")
}

func escapeMarkdownInline(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimLeft(strings.TrimSpace(s), "#")
	return strings.TrimSpace(s)
}
