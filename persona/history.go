package persona

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HistoryOptions controls how chat history files are decoded.
type HistoryOptions struct {
	// ArrayField is the field holding the message array when the top-level JSON value is an object.
	// Defaults to "messages".
	ArrayField string

	// SelfUserID is the userId that marks a message as written by the app user
	// (mobile-app exports carry userId instead of sender_role). Defaults to "user".
	SelfUserID string
}

// wireMessage accepts the native shape plus the mobile-app (userId/createdAt/system) and
// chat-export (role/create_time) shapes.
type wireMessage struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	SenderRole string     `json:"sender_role"`
	Timestamp  *time.Time `json:"timestamp"`

	UserID    string     `json:"userId"`
	CreatedAt *time.Time `json:"createdAt"`
	System    bool       `json:"system"`

	Role       string   `json:"role"`
	CreateTime *float64 `json:"create_time"`
}

// LoadMessages reads a history file: a JSON array, an object holding a message array, a single
// exported conversation (mapping tree), or JSONL (*.jsonl).
func LoadMessages(ctx context.Context, path string, opts HistoryOptions) ([]Message, error) {
	if path == "" {
		return nil, errors.New("LoadMessages: path is empty")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadMessages: open: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		return DecodeMessagesJSONL(ctx, f, opts)
	}
	return DecodeMessages(ctx, f, opts)
}

// DecodeMessages streams messages from r without reading the whole document into memory.
func DecodeMessages(ctx context.Context, r io.Reader, opts HistoryOptions) ([]Message, error) {
	if ctx == nil {
		return nil, errors.New("DecodeMessages: ctx is nil")
	}
	opts = normalizeHistoryOptions(opts)

	dec := json.NewDecoder(bufio.NewReaderSize(r, 1<<20))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("DecodeMessages: read first token: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil, fmt.Errorf("DecodeMessages: expected JSON array/object, got %T", tok)
	}

	switch delim {
	case '[':
		msgs, err := decodeArrayFromOpen(ctx, dec, opts)
		if err != nil {
			return nil, err
		}
		if err := expectDelim(dec, ']'); err != nil {
			return nil, err
		}
		return msgs, nil
	case '{':
		var (
			msgs        []Message
			found       bool
			mapping     map[string]exportNode
			currentNode string
		)
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("DecodeMessages: read object key: %w", err)
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("DecodeMessages: expected string key, got %T", keyTok)
			}
			if key != opts.ArrayField {
				switch key {
				case "mapping":
					if err := dec.Decode(&mapping); err != nil {
						return nil, fmt.Errorf("DecodeMessages: decode mapping: %w", err)
					}
					continue
				case "current_node":
					if err := dec.Decode(&currentNode); err != nil {
						return nil, fmt.Errorf("DecodeMessages: decode current_node: %w", err)
					}
					continue
				}
			}
			valTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("DecodeMessages: read value for key %q: %w", key, err)
			}
			if key != opts.ArrayField {
				if err := skipValue(dec, valTok); err != nil {
					return nil, fmt.Errorf("DecodeMessages: skip key %q: %w", key, err)
				}
				continue
			}
			if d, ok := valTok.(json.Delim); !ok || d != '[' {
				return nil, fmt.Errorf("DecodeMessages: field %q is not an array", key)
			}
			found = true
			msgs, err = decodeArrayFromOpen(ctx, dec, opts)
			if err != nil {
				return nil, err
			}
			if err := expectDelim(dec, ']'); err != nil {
				return nil, err
			}
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
		if found {
			return msgs, nil
		}
		if mapping != nil {
			// Single conversation from a chat export: follow the visible branch of the tree.
			return linearizeExport(mapping, currentNode)
		}
		return nil, fmt.Errorf("DecodeMessages: no %q array found in top-level object", opts.ArrayField)
	default:
		return nil, fmt.Errorf("DecodeMessages: unsupported top-level delimiter %q", delim)
	}
}

// DecodeMessagesJSONL reads one message object per line; blank lines are skipped.
func DecodeMessagesJSONL(ctx context.Context, r io.Reader, opts HistoryOptions) ([]Message, error) {
	if ctx == nil {
		return nil, errors.New("DecodeMessagesJSONL: ctx is nil")
	}
	opts = normalizeHistoryOptions(opts)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 8<<20)

	var msgs []Message
	line := 0
	for sc.Scan() {
		line++
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		b := strings.TrimSpace(sc.Text())
		if b == "" {
			continue
		}
		var w wireMessage
		if err := json.Unmarshal([]byte(b), &w); err != nil {
			return nil, fmt.Errorf("DecodeMessagesJSONL: line %d: %w", line, err)
		}
		msgs = append(msgs, w.toMessage(opts))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("DecodeMessagesJSONL: scan: %w", err)
	}
	return msgs, nil
}

func normalizeHistoryOptions(opts HistoryOptions) HistoryOptions {
	if opts.ArrayField == "" {
		opts.ArrayField = "messages"
	}
	if opts.SelfUserID == "" {
		opts.SelfUserID = "user"
	}
	return opts
}

func decodeArrayFromOpen(ctx context.Context, dec *json.Decoder, opts HistoryOptions) ([]Message, error) {
	var msgs []Message
	for dec.More() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var w wireMessage
		if err := dec.Decode(&w); err != nil {
			return nil, fmt.Errorf("DecodeMessages: decode message %d: %w", len(msgs), err)
		}
		msgs = append(msgs, w.toMessage(opts))
	}
	return msgs, nil
}

func (w wireMessage) toMessage(opts HistoryOptions) Message {
	m := Message{
		ID:         w.ID,
		Text:       w.Text,
		SenderRole: w.role(opts.SelfUserID),
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	switch {
	case w.Timestamp != nil:
		m.Timestamp = *w.Timestamp
	case w.CreatedAt != nil:
		m.Timestamp = *w.CreatedAt
	case w.CreateTime != nil && *w.CreateTime > 0:
		ns := int64(math.Round(*w.CreateTime * 1e9))
		m.Timestamp = time.Unix(0, ns).UTC()
	}
	return m
}

func (w wireMessage) role(selfUserID string) SenderRole {
	switch SenderRole(strings.ToLower(strings.TrimSpace(w.SenderRole))) {
	case RoleSelf:
		return RoleSelf
	case RoleOther:
		return RoleOther
	case RoleSystem:
		return RoleSystem
	}
	if w.System {
		return RoleSystem
	}
	switch strings.ToLower(strings.TrimSpace(w.Role)) {
	case "user":
		return RoleSelf
	case "assistant":
		return RoleOther
	case "system", "tool":
		return RoleSystem
	}
	if w.UserID != "" && w.UserID == selfUserID {
		return RoleSelf
	}
	return RoleOther
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("DecodeMessages: read closing %q: %w", want, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("DecodeMessages: expected closing %q, got %v", want, tok)
	}
	return nil
}

func skipValue(dec *json.Decoder, first json.Token) error {
	d, ok := first.(json.Delim)
	if !ok {
		// Primitive (string/number/bool/null): already fully consumed.
		return nil
	}
	switch d {
	case '{', '[':
	default:
		return fmt.Errorf("skipValue: unexpected delimiter %q", d)
	}

	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		if dd, ok := tok.(json.Delim); ok {
			switch dd {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
