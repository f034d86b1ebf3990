// Package symptoms accumulates symptom keywords heard during a listening
// session.
package symptoms

import (
	"sort"
	"strings"
	"sync"
)

// Vocabulary is the fixed keyword list matched against transcripts.
var Vocabulary = []string{
	"headache", "pain", "fever", "cough", "fatigue", "nausea", "dizziness",
	"shortness", "rash", "swelling", "chest", "palpitations", "insomnia",
	"anxiety", "itching", "burning", "weakness", "blurred", "numbness", "tingling",
}

// KeywordSet is a duplicate-free set of capitalised keywords.
type KeywordSet struct {
	mu         sync.Mutex
	keywords   map[string]struct{}
	transcript []string
}

func NewKeywordSet() *KeywordSet {
	return &KeywordSet{keywords: make(map[string]struct{})}
}

// Observe scans a final transcript segment, records it and returns the
// keywords it added.
func (k *KeywordSet) Observe(final string) []string {
	text := strings.TrimSpace(final)
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)

	k.mu.Lock()
	defer k.mu.Unlock()

	k.transcript = append(k.transcript, text)
	var added []string
	for _, word := range Vocabulary {
		if !strings.Contains(lower, word) {
			continue
		}
		kw := strings.ToUpper(word[:1]) + word[1:]
		if _, ok := k.keywords[kw]; ok {
			continue
		}
		k.keywords[kw] = struct{}{}
		added = append(added, kw)
	}
	return added
}

// Keywords returns the set sorted for stable output.
func (k *KeywordSet) Keywords() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]string, 0, len(k.keywords))
	for kw := range k.keywords {
		out = append(out, kw)
	}
	sort.Strings(out)
	return out
}

// Transcript joins every observed segment.
func (k *KeywordSet) Transcript() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return strings.Join(k.transcript, " ")
}

// Clear empties keywords and transcript.
func (k *KeywordSet) Clear() {
	k.mu.Lock()
	k.keywords = make(map[string]struct{})
	k.transcript = nil
	k.mu.Unlock()
}
