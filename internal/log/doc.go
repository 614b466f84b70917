// Package log provides the structured logger used by boorucrawl, built on
// the standard slog package.
//
// The SecureHandler masks credentials before they reach the output:
//   - attributes named like credentials (api_key, login, user_id, cookie)
//   - values that look like bearer tokens or long API keys
//   - api_key, login and user_id query parameters embedded in URLs
//
// Image board APIs take credentials as query parameters, so request URLs
// are rewritten rather than dropped.
//
// # Usage
//
//	logger, closer, err := log.NewFileLogger(path, verbose)
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
//	slog.SetDefault(logger)
package log
