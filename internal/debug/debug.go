// ABOUTME: In-memory debug message ring shown in the player's debug view
// ABOUTME: Messages are tagged by source and type and filtered on read
package debug

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Common sources and types
const (
	SourceAudio   = "audio"
	SourceVideo   = "video"
	SourceLoader  = "loader"
	SourceSession = "session"

	TypeDebug = "debug"
	TypeError = "error"
)

// DefaultCapacity is the number of messages kept when none is configured
const DefaultCapacity = 100

// Message is one debug entry
type Message struct {
	Time   time.Time
	Source string
	Type   string
	Title  string
	Text   string
}

func (m Message) String() string {
	return fmt.Sprintf("[%s/%s] %s: %s", m.Source, m.Type, m.Title, m.Text)
}

// Log is a bounded ring of debug messages. When full, the oldest message
// is dropped.
type Log struct {
	mu       sync.RWMutex
	messages []Message
	start    int
	count    int
	prefix   string
	mirror   bool
}

// New creates a debug log holding up to capacity messages
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		messages: make([]Message, capacity),
	}
}

// MirrorTo enables copying messages of type TypeError to the standard
// logger with the given prefix
func (l *Log) MirrorTo(prefix string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prefix = prefix
	l.mirror = true
}

// Add records a message
func (l *Log) Add(source, typ, title, format string, args ...any) {
	msg := Message{
		Time:   time.Now(),
		Source: source,
		Type:   typ,
		Title:  title,
		Text:   fmt.Sprintf(format, args...),
	}

	l.mu.Lock()
	capacity := len(l.messages)
	idx := (l.start + l.count) % capacity
	l.messages[idx] = msg
	if l.count < capacity {
		l.count++
	} else {
		l.start = (l.start + 1) % capacity
	}
	mirror, prefix := l.mirror, l.prefix
	l.mu.Unlock()

	if mirror && typ == TypeError {
		log.Printf("%s%s", prefix, msg)
	}
}

// Messages returns the messages matching source and type, oldest first.
// An empty source or type matches everything.
func (l *Log) Messages(source, typ string) []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []Message
	for i := 0; i < l.count; i++ {
		m := l.messages[(l.start+i)%len(l.messages)]
		if matches(m, source, typ) {
			result = append(result, m)
		}
	}
	return result
}

// Clear removes the messages matching source and type
func (l *Log) Clear(source, typ string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := make([]Message, 0, l.count)
	for i := 0; i < l.count; i++ {
		m := l.messages[(l.start+i)%len(l.messages)]
		if !matches(m, source, typ) {
			kept = append(kept, m)
		}
	}

	for i := range l.messages {
		l.messages[i] = Message{}
	}
	copy(l.messages, kept)
	l.start = 0
	l.count = len(kept)
}

// Len returns the number of stored messages
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// Cap returns the ring capacity
func (l *Log) Cap() int {
	return len(l.messages)
}

// Full reports whether the next Add will drop the oldest message
func (l *Log) Full() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count == len(l.messages)
}

func matches(m Message, source, typ string) bool {
	return (source == "" || m.Source == source) && (typ == "" || m.Type == typ)
}
