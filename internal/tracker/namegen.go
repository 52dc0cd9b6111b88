package tracker

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// adjectives for friendly session names. Order matters: the name for a
// given session id must be stable across releases.
var adjectives = []string{
	"bold", "swift", "cosmic", "bright", "calm", "eager", "fair", "gentle",
	"happy", "keen", "lively", "merry", "noble", "proud", "quick", "ready",
	"smart", "true", "vivid", "warm", "wise", "young", "zesty", "agile",
	"brave", "clear", "deft", "epic", "fresh", "grand", "humble", "ideal",
}

// nouns for friendly session names.
var nouns = []string{
	"cat", "eagle", "dragon", "wolf", "bear", "hawk", "lion", "tiger",
	"fox", "owl", "raven", "shark", "whale", "deer", "horse", "falcon",
	"phoenix", "griffin", "panther", "cobra", "jaguar", "orca", "puma", "lynx",
	"badger", "otter", "crane", "heron", "swan", "viper", "raptor", "condor",
}

// GenerateFriendlyName returns a deterministic "adjective-noun" name for a
// session id. Same id always yields the same name, across restarts. UUIDs
// (with or without dashes) use two 8-hex-digit windows; anything else falls
// back to a stable hash of the raw id. Never fails; collisions between
// different ids are allowed.
func GenerateFriendlyName(sessionID string) string {
	adjSeed, nounSeed := nameSeeds(sessionID)
	return adjectives[adjSeed%uint64(len(adjectives))] + "-" + nouns[nounSeed%uint64(len(nouns))]
}

func nameSeeds(sessionID string) (uint64, uint64) {
	clean := strings.ReplaceAll(sessionID, "-", "")
	if len(clean) >= 16 {
		adj, errA := strconv.ParseUint(clean[:8], 16, 64)
		noun, errB := strconv.ParseUint(clean[8:16], 16, 64)
		if errA == nil && errB == nil {
			return adj, noun
		}
	}
	// Non-hex or short id: derive both windows from one stable hash.
	h := fnv.New64a()
	h.Write([]byte(sessionID))
	sum := h.Sum64()
	return sum & 0xffffffff, sum >> 32
}
