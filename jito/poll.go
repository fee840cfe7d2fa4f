package jito

import (
	"context"
	"fmt"
	"time"

	"github.com/arcsign/solpipe/chainerr"
)

// pollInterval is the bundle-status poll cadence.
const pollInterval = 500 * time.Millisecond

// AwaitLanding polls a bundle's status until it lands, fails, is dropped, or
// the blockhash-expiry deadline passes.
func (c *Client) AwaitLanding(ctx context.Context, region Region, bundleID string, deadline time.Time) (*BundleStatus, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, chainerr.NewCancelledError()
		case <-ticker.C:
			if time.Now().After(deadline) {
				return nil, chainerr.NewBundleRejectedError(bundleID, string(StatusDropped), fmt.Errorf("jito: deadline elapsed before bundle landed"))
			}

			status, err := c.GetBundleStatus(ctx, region, bundleID)
			if err != nil {
				continue
			}
			switch status.Status {
			case StatusLanded:
				return status, nil
			case StatusFailed, StatusDropped:
				return nil, chainerr.NewBundleRejectedError(bundleID, string(status.Status), nil)
			}
		}
	}
}
