package reportclient

import (
	"context"
	"fmt"
	"time"

	"SilverReport/internal/model"
)

// WaitForReport polls src until a generation run other than prevRunID has
// finished. It returns the final status, or an error if that run failed, the
// source cannot report status, or ctx ends first.
func WaitForReport(ctx context.Context, src Source, prevRunID string, interval time.Duration) (*model.GenerationStatus, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		st, err := src.Status(ctx)
		if err != nil {
			return nil, err
		}
		if st.RunID != "" && st.RunID != prevRunID && st.State != model.RunRunning {
			if st.State == model.RunFailed {
				return st, fmt.Errorf("generation run %s failed: %s", st.RunID, st.Error)
			}
			return st, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for report: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
