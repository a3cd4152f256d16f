// Package logger builds configured slog.Logger instances for services
// embedding the decision engine.
//
// The engine logs background persistence failures and malformed definitions
// through whatever logger it is given; this package produces one with the
// right format and level for the environment, plus optional context-driven
// attributes such as a request id:
//
//	log := logger.New(
//		logger.WithProduction("checkout"),
//		logger.WithContextValue("request_id", requestIDKey{}),
//	)
//
//	engine, err := experiment.New(configStore, assignmentStore,
//		experiment.WithLogger(log),
//	)
package logger
