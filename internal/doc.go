// Package smardexporter polls the SMARD market-data feed and exports the
// latest German energy production and consumption figures to Prometheus.
//
// # Architecture
//
// The service is structured into several key packages:
//   - window: computes the request window for a poll
//   - api: feed client and request validation
//   - cache: freshness-based response cache over file, S3 or Postgres storage
//   - database: Postgres cache store
//   - parser: turns the XML payload into per-module sums
//   - classifier: tags modules as renewable, conventional, neutral or unknown
//   - snapshot: builds and publishes the metric set of one cycle
//   - scheduler: runs poll cycles on a fixed interval
//   - exporter: Prometheus collector, self metrics and HTTP router
//   - grpc: gRPC health service
//   - publish: optional Kafka fan-out of each snapshot
//   - config, logging: configuration and logger setup
//
// Key Features
//
//   - Cache:
//     A fetched response is reused for 15 minutes regardless of the
//     window, so the upstream feed is hit at most once per TTL per slot.
//
//   - Partial data:
//     A module with any missing sub-value is dropped for the cycle
//     instead of being exported with a partial sum.
//
//   - Availability:
//     A failed cycle keeps the previous snapshot visible to scrapes.
//
// For more information about specific packages, see their respective
// documentation.
package smardexporter
