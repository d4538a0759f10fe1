package internal

import "context"

// InterpretationClient is the remote interpretation service as the session
// store and chat see it. Implementations must not retry and must honour ctx.
type InterpretationClient interface {
	Submit(ctx context.Context, doc *CapturedDocument, language string) (*InterpretationResult, error)
	FetchResult(ctx context.Context, id string) (*InterpretationResult, error)
	FetchHistory(ctx context.Context, resultID string) ([]HistoryEntry, error)
	Ask(ctx context.Context, resultID, question, language string) (Answer, error)
}
