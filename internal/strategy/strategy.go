// Package strategy implements the extraction strategies and the orchestrator
// that chains them: official supplier API, AI remote fetch, and direct
// markup extraction with deterministic pattern mining.
package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/sells-group/supplier-import/internal/model"
	"github.com/sells-group/supplier-import/internal/supplier"
)

// Mode selects which strategies an import request may use.
type Mode string

const (
	// ModeAuto runs the full chain: API, remote fetch, markup.
	ModeAuto Mode = "auto"
	// ModeBrowser forces the AI remote-fetch strategy only.
	ModeBrowser Mode = "browser"
	// ModeStandard skips the AI remote fetch: API then markup.
	ModeStandard Mode = "standard"
)

// ParseMode validates a caller-supplied strategy string. Empty means auto.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeBrowser:
		return ModeBrowser, nil
	case ModeStandard:
		return ModeStandard, nil
	default:
		return "", fmt.Errorf("unknown strategy %q (want auto, browser, or standard)", s)
	}
}

// Request is one classified import request.
type Request struct {
	URL     string
	Profile *supplier.Profile
}

// Strategy is one self-contained extraction method. Extract augments the
// accumulated record in place rather than replacing it, so partial results
// from an earlier failed strategy carry forward into later ones.
type Strategy interface {
	Name() string
	// Applies reports whether this strategy runs for the given mode and
	// supplier profile. Checked before any network call.
	Applies(mode Mode, profile *supplier.Profile) bool
	Extract(ctx context.Context, req Request, rec *model.ProductRecord) model.ExtractionAttempt
}
