package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// TestSnapshotKey returns the cache key for a test definition plus its question set.
func (r *CacheKeyStruct) TestSnapshotKey(testID string) string {
	return fmt.Sprintf("test:%s:snapshot", testID)
}

// AttemptDraftKey returns the hash key holding autosaved answers of an attempt.
func (r *CacheKeyStruct) AttemptDraftKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:draft", attemptID)
}

var CacheKey = NewCacheKeyStruct()
