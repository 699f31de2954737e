// Package storage publishes episode artifacts to durable object storage and
// lists what has been published.
//
// Three backends implement Bucket: a local directory (development), an Azure
// Blob Storage container and a Supabase storage bucket. Open picks one from
// config. Episodes filters a bucket listing down to published artifacts,
// newest first.
package storage
