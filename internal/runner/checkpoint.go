package runner

import "context"

// checkpointInterval is how many iterations a row loop runs between
// cancellation checks.
const checkpointInterval = 1024

// Checkpoint returns ctx.Err() on every checkpointInterval-th iteration i of
// a row loop and nil otherwise. Runners that work in memory call it so that a
// stage timeout or a cancelled run stops them mid-table.
func Checkpoint(ctx context.Context, i int) error {
	if i%checkpointInterval != 0 {
		return nil
	}
	return ctx.Err()
}
