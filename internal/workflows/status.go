package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/coffer/internal/session"
	"github.com/PolarWolf314/coffer/internal/store"
)

// StatusOptions configures the status workflow.
type StatusOptions struct {
	Session *session.Session
}

// StatusSummary holds counts of record sets by entry state.
type StatusSummary struct {
	Plaintext int
	Encrypted int
	// Bytes is the total stored size.
	Bytes int
}

// StatusResult contains the outcome of a status operation.
type StatusResult struct {
	State             session.State
	RemainingAttempts int
	MaxAttempts       int

	// Entries describes every stored record set, sorted by name.
	Entries []store.EntryInfo

	// Missing lists known record sets that are absent.
	Missing []string

	Summary StatusSummary
}

// Status reports the session state and how every record set is stored.
// It never decrypts anything, so it works in every state.
func Status(ctx context.Context, opts StatusOptions) (*StatusResult, error) {
	if opts.Session == nil {
		return nil, fmt.Errorf("status: no session")
	}

	infos, err := opts.Session.Store().Describe()
	if err != nil {
		return nil, fmt.Errorf("describing record sets: %w", err)
	}

	result := &StatusResult{
		State:             opts.Session.State(),
		RemainingAttempts: opts.Session.RemainingAttempts(),
		MaxAttempts:       opts.Session.MaxAttempts(),
	}

	seen := make(map[string]bool, len(infos))
	for _, info := range infos {
		seen[info.Name] = true
		switch info.State {
		case store.EntryEncrypted:
			result.Summary.Encrypted++
		case store.EntryPlaintext:
			result.Summary.Plaintext++
		default:
			continue
		}
		result.Summary.Bytes += info.Size
		result.Entries = append(result.Entries, info)
	}

	for _, name := range store.KnownNames {
		if !seen[name] {
			result.Missing = append(result.Missing, name)
		}
	}
	return result, nil
}
