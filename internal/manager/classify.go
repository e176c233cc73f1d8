package manager

import (
	"context"
	"errors"
	"io/fs"

	"github.com/fpp-125/djstarter/internal/config"
	"github.com/fpp-125/djstarter/internal/patch"
	"github.com/fpp-125/djstarter/internal/pipeline"
	"github.com/fpp-125/djstarter/internal/toolrunner"
)

// Error kinds stored with failed runs and shown in CLI diagnostics.
const (
	KindValidation   = "validation"
	KindExternalTool = "external_tool"
	KindIO           = "io"
	KindPatch        = "patch"
	KindCancelled    = "cancelled"
	KindUnknown      = "unknown"
)

// Classify maps an error from a run to one of the Kind constants. It returns
// "" for nil.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	var (
		verr *pipeline.ValidationError
		xerr *toolrunner.ExitError
		perr *fs.PathError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.As(err, &verr), errors.Is(err, config.ErrInvalid):
		return KindValidation
	case errors.As(err, &xerr):
		return KindExternalTool
	case errors.Is(err, patch.ErrMarkerNotFound), errors.Is(err, patch.ErrParse):
		return KindPatch
	case errors.As(err, &perr), errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission), errors.Is(err, fs.ErrExist):
		return KindIO
	}
	return KindUnknown
}
