// Package requestid tags each request with an X-Request-ID. A valid inbound
// header is reused; otherwise a UUID is generated. The id is echoed in the
// response, stored in the context, and added to log records through
// LoggerExtractor.
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	r.Use(requestid.Middleware)
package requestid
