// Package middleware wraps the API's handlers with the cross-cutting
// behavior every request goes through: request IDs, CORS, request/response
// event logging, metrics and panic recovery.
//
// The recommended order, outermost first, is below. CORS answers preflight
// requests itself, so it sits inside RequestLogger.
//
//	middleware.Chain(mux,
//		middleware.RequestID(),
//		middleware.RequestLogger(log),
//		middleware.CORS(origins),
//		middleware.Metrics(collector, routes...),
//		middleware.Recover(log),
//	)
//
// RequestLogger stores a request-scoped *logger.Logger (carrying request_id)
// in the request context; handlers retrieve it with logger.FromContext.
package middleware
