// Package session tracks per-conversation retrieval context: a bounded
// window of recent turns, a decaying topic-relevance map, and the document
// references mentioned so far. State is in-memory only and expires after an
// idle TTL.
package session

import (
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/rackguard/rackguard/server/queryengine"
)

// Strategy is the conversational classification of a turn.
type Strategy string

const (
	StrategyStandard             Strategy = "standard"
	StrategyContextualRefinement Strategy = "contextual_refinement"
	StrategyContextualExpansion  Strategy = "contextual_expansion"
	StrategyDeepDive             Strategy = "deep_dive"
	StrategyComparison           Strategy = "comparison"
)

const (
	// maxTurns bounds the per-session turn window.
	maxTurns = 10

	// topicDecay is applied to every tracked topic before new evidence.
	topicDecay = 0.8
	// topicBump reinforces a topic seen again; topicInit seeds a new one.
	topicBump = 0.3
	topicInit = 0.5
	// topicFloor prunes topics that have faded out.
	topicFloor = 0.1
)

// Turn is one query/response exchange. ResultIDs are recorded at retrieval
// time; Response is attached later via a second write.
type Turn struct {
	Query     string
	Response  string
	Timestamp time.Time
	ResultIDs []string
	Entities  queryengine.Entities
}

// Context is the per-session conversation state. All access goes through
// its mutex; the store hands out contexts, callers use the exported methods.
type Context struct {
	mu sync.Mutex

	sessionID           string
	turns               []*Turn
	activeTopics        map[string]float64
	mentionedReferences []string
	currentFocus        string
	lastActivity        time.Time
}

var contextReferencePattern = regexp.MustCompile(`(?i)(?:table|figure)\s+[\d\-.]+`)

func newContext(sessionID string) *Context {
	return &Context{
		sessionID:    sessionID,
		activeTopics: make(map[string]float64),
		lastActivity: time.Now(),
	}
}

// AddTurn appends a turn, decays topic scores, reinforces topics for the
// turn's entities, and records any document references it mentions.
func (c *Context) AddTurn(turn *Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = append(c.turns, turn)
	if len(c.turns) > maxTurns {
		c.turns = c.turns[len(c.turns)-maxTurns:]
	}
	c.lastActivity = time.Now()

	c.updateActiveTopics(turn)
	c.updateReferences(turn.Query + turn.Response)
}

// AttachResponse fills in the most recent turn's response text and picks up
// any references the response mentions.
func (c *Context) AttachResponse(response string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.turns) == 0 {
		return
	}
	c.turns[len(c.turns)-1].Response = response
	c.lastActivity = time.Now()
	c.updateReferences(response)
}

// updateActiveTopics must be called with the lock held.
func (c *Context) updateActiveTopics(turn *Turn) {
	for topic := range c.activeTopics {
		c.activeTopics[topic] *= topicDecay
	}

	for _, entityType := range sortedKeys(turn.Entities) {
		for _, entity := range turn.Entities[entityType] {
			key := entityType + ":" + entity
			if score, ok := c.activeTopics[key]; ok {
				c.activeTopics[key] = minFloat(1.0, score+topicBump)
			} else {
				c.activeTopics[key] = topicInit
			}
		}
	}

	for topic, score := range c.activeTopics {
		if score < topicFloor {
			delete(c.activeTopics, topic)
		}
	}
}

// updateReferences must be called with the lock held.
func (c *Context) updateReferences(text string) {
	for _, ref := range contextReferencePattern.FindAllString(text, -1) {
		if !containsString(c.mentionedReferences, ref) {
			c.mentionedReferences = append(c.mentionedReferences, ref)
		}
	}
}

// Snapshot is a copy of the context state safe to read without holding the
// session lock.
type Snapshot struct {
	SessionID           string
	Turns               []*Turn
	ActiveTopics        map[string]float64
	MentionedReferences []string
	CurrentFocus        string
}

// Snapshot copies the current state.
func (c *Context) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	turns := make([]*Turn, len(c.turns))
	copy(turns, c.turns)
	topics := make(map[string]float64, len(c.activeTopics))
	for k, v := range c.activeTopics {
		topics[k] = v
	}
	refs := make([]string, len(c.mentionedReferences))
	copy(refs, c.mentionedReferences)

	return Snapshot{
		SessionID:           c.sessionID,
		Turns:               turns,
		ActiveTopics:        topics,
		MentionedReferences: refs,
		CurrentFocus:        c.currentFocus,
	}
}

// RecentReferences returns up to n most recently mentioned references.
func (s Snapshot) RecentReferences(n int) []string {
	if len(s.MentionedReferences) <= n {
		return s.MentionedReferences
	}
	return s.MentionedReferences[len(s.MentionedReferences)-n:]
}

// TopTopics returns up to n topic values ordered by descending score.
// Score ties break on the topic key so the order is stable.
func (s Snapshot) TopTopics(n int) []string {
	type scored struct {
		key   string
		score float64
	}
	topics := make([]scored, 0, len(s.ActiveTopics))
	for k, v := range s.ActiveTopics {
		topics = append(topics, scored{key: k, score: v})
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].score != topics[j].score {
			return topics[i].score > topics[j].score
		}
		return topics[i].key < topics[j].key
	})

	values := make([]string, 0, n)
	for _, t := range topics {
		if len(values) == n {
			break
		}
		values = append(values, topicValue(t.key))
	}
	return values
}

// TopicFilterValues returns, per entity category, the values of topics whose
// score exceeds the threshold, in sorted key order.
func (s Snapshot) TopicFilterValues(threshold float64) map[string][]string {
	keys := make([]string, 0, len(s.ActiveTopics))
	for k, v := range s.ActiveTopics {
		if v > threshold {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	filters := make(map[string][]string)
	for _, key := range keys {
		category := topicCategory(key)
		filters[category] = append(filters[category], topicValue(key))
	}
	return filters
}

func topicCategory(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return key
}

func topicValue(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[i+1:]
		}
	}
	return key
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
