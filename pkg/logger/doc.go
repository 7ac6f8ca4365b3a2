// Package logger builds slog loggers with environment-appropriate
// defaults and provides attribute helpers so that task, queue and node
// identifiers land under the same keys everywhere.
//
// Production gets JSON at info level, development gets text at debug
// level:
//
//	log := logger.New(logger.WithEnvironment(cfg.Env, "queuekit"))
//	log.Info("worker started", logger.NodeID(nodeID))
package logger
