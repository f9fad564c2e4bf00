package entities

import (
	"encoding/json"
	"fmt"
	"time"
)

// Properties is the open key/value document stored as JSONB next to nodes and
// edges. The typed views below decode the well-known keys for each node type,
// anything else stays reachable through the map.
type Properties map[string]any

type GoalProperties struct {
	Progress   *float64   `json:"progress,omitempty"`
	TargetDate *time.Time `json:"target_date,omitempty"`
	Priority   string     `json:"priority,omitempty"`
}

type SkillProperties struct {
	Level    string   `json:"level,omitempty"`
	Evidence []string `json:"evidence,omitempty"`
}

type EmotionProperties struct {
	Valence   *float64 `json:"valence,omitempty"`
	Intensity *float64 `json:"intensity,omitempty"`
}

type SessionProperties struct {
	Summary         string `json:"summary,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	ConversationID  string `json:"conversation_id,omitempty"`
}

type AccomplishmentProperties struct {
	AchievedAt *time.Time `json:"achieved_at,omitempty"`
}

type InsightProperties struct {
	Source string `json:"source,omitempty"`
}

// Clone returns a shallow copy, nil stays nil.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge applies the keys of patch on top of p, like the jsonb || operator.
func (p Properties) Merge(patch Properties) Properties {
	out := p.Clone()
	if out == nil {
		out = make(Properties, len(patch))
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

func (p Properties) decodeInto(target any) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}

func (p Properties) Goal() (GoalProperties, error) {
	var out GoalProperties
	return out, p.decodeInto(&out)
}

func (p Properties) Skill() (SkillProperties, error) {
	var out SkillProperties
	return out, p.decodeInto(&out)
}

func (p Properties) Emotion() (EmotionProperties, error) {
	var out EmotionProperties
	return out, p.decodeInto(&out)
}

func (p Properties) Session() (SessionProperties, error) {
	var out SessionProperties
	return out, p.decodeInto(&out)
}

func (p Properties) Accomplishment() (AccomplishmentProperties, error) {
	var out AccomplishmentProperties
	return out, p.decodeInto(&out)
}

func (p Properties) Insight() (InsightProperties, error) {
	var out InsightProperties
	return out, p.decodeInto(&out)
}

// Typed returns the typed view that matches nodeType. Unknown node types get
// the open map back.
func (p Properties) Typed(nodeType NodeType) (any, error) {
	var (
		out any
		err error
	)
	switch nodeType {
	case NodeTypeGoal:
		out, err = p.Goal()
	case NodeTypeSkill:
		out, err = p.Skill()
	case NodeTypeEmotion:
		out, err = p.Emotion()
	case NodeTypeSession:
		out, err = p.Session()
	case NodeTypeAccomplishment:
		out, err = p.Accomplishment()
	case NodeTypeInsight:
		out, err = p.Insight()
	default:
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("properties do not match %s shape: %w", nodeType, err)
	}
	return out, nil
}
