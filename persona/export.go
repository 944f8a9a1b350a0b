package persona

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// exportNode is one node of a chat export's message tree: each reply points at its parent and
// regenerated answers become sibling branches.
type exportNode struct {
	ID       string         `json:"id"`
	Message  *exportMessage `json:"message"`
	Parent   *string        `json:"parent"`
	Children []string       `json:"children"`
}

type exportMessage struct {
	ID     string `json:"id"`
	Author struct {
		Role string `json:"role"`
	} `json:"author"`
	CreateTime *float64        `json:"create_time"`
	Content    json.RawMessage `json:"content"`
	Metadata   map[string]any  `json:"metadata"`
}

// linearizeExport walks from currentNode (or the newest leaf) up to the root and returns the
// visible branch in chronological order.
func linearizeExport(mapping map[string]exportNode, currentNode string) ([]Message, error) {
	if len(mapping) == 0 {
		return nil, nil
	}

	start := currentNode
	if start == "" {
		start = newestLeaf(mapping)
	}
	if start == "" {
		return nil, errors.New("linearizeExport: no current_node and no leaf node found")
	}

	visited := make(map[string]struct{}, len(mapping))
	var reversed []Message
	for {
		n, ok := mapping[start]
		if !ok {
			return nil, fmt.Errorf("linearizeExport: missing node %q in mapping", start)
		}
		if _, ok := visited[start]; ok {
			return nil, fmt.Errorf("linearizeExport: cycle detected at node %q", start)
		}
		visited[start] = struct{}{}

		if n.Message != nil {
			if m, ok := n.Message.toMessage(); ok {
				reversed = append(reversed, m)
			}
		}
		if n.Parent == nil || *n.Parent == "" {
			break
		}
		start = *n.Parent
	}

	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	return reversed, nil
}

func newestLeaf(mapping map[string]exportNode) string {
	var (
		bestID   string
		bestTime float64
		hasBest  bool
	)
	for id, n := range mapping {
		if len(n.Children) != 0 || n.Message == nil {
			continue
		}
		ct := 0.0
		if n.Message.CreateTime != nil {
			ct = *n.Message.CreateTime
		}
		// Ties break on id so the choice does not depend on map order.
		if !hasBest || ct > bestTime || (ct == bestTime && id < bestID) {
			bestID = id
			bestTime = ct
			hasBest = true
		}
	}
	return bestID
}

func (m exportMessage) toMessage() (Message, bool) {
	text := exportText(m.Content)
	role := strings.ToLower(strings.TrimSpace(m.Author.Role))
	if strings.TrimSpace(text) == "" {
		// Hidden system nodes and image-only tool output carry nothing to learn from.
		return Message{}, false
	}
	if role == "system" && hiddenFromConversation(m.Metadata) {
		return Message{}, false
	}

	out := Message{ID: m.ID, Text: text}
	switch role {
	case "user":
		out.SenderRole = RoleSelf
	case "assistant":
		out.SenderRole = RoleOther
	default:
		out.SenderRole = RoleSystem
	}
	if m.CreateTime != nil && *m.CreateTime > 0 {
		out.Timestamp = time.Unix(0, int64(math.Round(*m.CreateTime*1e9))).UTC()
	}
	return out, true
}

// exportText joins the string parts of a {"content_type":..., "parts":[...]} body, falling back
// to a plain "text" field.
func exportText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var probe struct {
		Parts []any  `json:"parts"`
		Text  string `json:"text"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	var parts []string
	for _, p := range probe.Parts {
		if s, ok := p.(string); ok {
			parts = append(parts, s)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n")
	}
	return probe.Text
}

func hiddenFromConversation(metadata map[string]any) bool {
	v, ok := metadata["is_visually_hidden_from_conversation"]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}
