// Package cache provides a two-tier read-through cache. An in-memory tier
// bounded by TTL and entry count (L1) sits in front of an optional file per
// key disk tier (L2); on a full miss the value is produced by a Source and
// written through to both tiers.
package cache
