// Package batch executes bulk cart operations in fixed-size chunks so
// the upstream backend never sees more than one in-flight write and no
// chunk exceeds its accepted batch size.
package batch

import (
	"context"
	"slices"
)

// DefaultChunkSize matches the upstream backend's accepted batch size.
const DefaultChunkSize = 10

// Run splits items into chunks of chunkSize and calls exec once per
// chunk, strictly sequentially. The loop stops at the first failing
// chunk and returns the last known-good result together with the error;
// chunks already executed are real upstream writes and are not undone.
func Run[T, R any](ctx context.Context, items []T, chunkSize int, exec func(context.Context, []T) (R, error)) (R, error) {
	var last R
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	for chunk := range slices.Chunk(items, chunkSize) {
		if err := ctx.Err(); err != nil {
			return last, err
		}
		res, err := exec(ctx, chunk)
		if err != nil {
			return last, err
		}
		last = res
	}
	return last, nil
}
