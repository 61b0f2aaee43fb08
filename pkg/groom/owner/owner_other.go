//go:build !unix

package owner

import (
	"context"

	"github.com/jamesainslie/groom/pkg/groom/types"
)

// Process always fails with ErrUnsupported.
func (r *Remapper) Process(context.Context, types.Item) (bool, error) {
	return false, ErrUnsupported
}
