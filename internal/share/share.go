// Package share models the outbound "share this text" boundary. The
// real share surface belongs to the host platform; the server only
// hands the rendered text over.
package share

import (
	"context"

	"github.com/rs/zerolog"
)

type Sink interface {
	Share(ctx context.Context, text string) error
}

// LogSink records share requests in the application log. Used when no
// platform share surface is wired in; clients fall back to their own
// clipboard with the text returned by the API.
type LogSink struct {
	Log zerolog.Logger
}

func (s LogSink) Share(_ context.Context, text string) error {
	s.Log.Info().Int("chars", len(text)).Msg("share requested")
	return nil
}
