// File: utils/constants.go
package utils

// AvailabilityCachePrefix is the prefix for cached availability slot keys.
const AvailabilityCachePrefix = "avail:"

// SessionCachePrefix is the prefix for conversation session keys.
const SessionCachePrefix = "conv:"

// BucketMinutes is the time-bucket granularity for availability slots.
const BucketMinutes = 15
