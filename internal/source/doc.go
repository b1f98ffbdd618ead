// Package source provides the data sources that sit behind tiered caches:
// an S3 query that returns tabular objects, and a rate limiting wrapper for
// any source.
package source
