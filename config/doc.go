// Package config loads the semqueue load driver configuration.
//
// Configuration is YAML (JSON documents are accepted too) decoded with
// gopkg.in/yaml.v3 over built-in defaults. Unknown keys are rejected.
//
// # Layering
//
// A Loader applies, in order:
//
//  1. Default()
//  2. every file added with AddLayer; later files override earlier ones key by key
//  3. SEMQUEUE_* environment variables
//
// and then validates the result:
//
//	loader := config.NewLoader()
//	loader.AddLayer("configs/base.yaml")
//	loader.AddLayer("configs/ci.yaml")
//	cfg, err := loader.Load()
//
// Load(path) is the single-file shorthand and Parse(data) decodes bytes.
//
// # Environment Overrides
//
//	SEMQUEUE_QUEUE_NAME          queue.name
//	SEMQUEUE_QUEUE_CAPACITY      queue.capacity
//	SEMQUEUE_PRODUCERS           workload.producers
//	SEMQUEUE_CONSUMERS           workload.consumers
//	SEMQUEUE_ITEMS_PER_PRODUCER  workload.items_per_producer
//	SEMQUEUE_WORKERS             workload.workers
//	SEMQUEUE_METRICS_ENABLED     metrics.enabled
//	SEMQUEUE_METRICS_PORT        metrics.port
//
// # Errors
//
// Validation reports every problem in one error wrapping
// errors.ErrInvalidConfig, classified as invalid.
package config
