package services

import "fmt"

// Redis key layout shared by the session-scoped state. Everything here
// is cleared on sign-out.
func sessionKey(id string) string        { return fmt.Sprintf("session:%s", id) }
func activeArtifactKey(id string) string { return fmt.Sprintf("active_artifact:%s", id) }
func entitlementKey(id string) string    { return fmt.Sprintf("entitlement:%s", id) }
func artifactCacheKey(id string) string  { return fmt.Sprintf("artifact_cache:%s", id) }
func pendingKey(session string) string   { return fmt.Sprintf("pending:%s", session) }
