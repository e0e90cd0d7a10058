package rendergraph

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/anima-framegraph/engine/core"
)

var (
	ErrOutsideSetup     = errors.New("resource access declared outside of a pass setup")
	ErrRepeatedWrite    = errors.New("resource written twice in one pass without an intervening read")
	ErrStaleVersion     = errors.New("resource version superseded by a later write")
	ErrInvalidResource  = errors.New("invalid resource handle")
	ErrWrongKind        = errors.New("resource handle has the wrong kind")
	ErrUnbound          = errors.New("resource not bound to a physical resource")
	ErrUnresolvedAccess = errors.New("access flags do not resolve to a stage, access and usage")
	ErrNotCompiled      = errors.New("graph not compiled")
	ErrOutputExists     = errors.New("pass output already registered this frame")
	ErrOutputMissing    = errors.New("pass output not registered this frame")
	ErrNoUploader       = errors.New("frame has no uploader")
	ErrStalePoolHandle  = errors.New("pool handle is stale or not in use")
)

// fail logs err the way the rest of the engine reports errors and hands it back.
func fail(err error, format string, args ...interface{}) error {
	err = fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
	core.LogError(err.Error())
	return err
}
