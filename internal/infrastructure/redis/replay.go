package redis

import (
	"context"
	"fmt"
	"time"
)

// ReplayTTL is how long an accepted TOTP code stays un-replayable. It covers
// the full ±1-step acceptance window (30s step, one step of skew each way).
const ReplayTTL = 90 * time.Second

const replayKeyPattern = "twofa_used:%s:%s" // userID:code

// ReplayKey generates the key for tracking used TOTP codes
func ReplayKey(userID, code string) string {
	return fmt.Sprintf(replayKeyPattern, userID, code)
}

// MarkCodeUsed records a TOTP code as consumed for the user. Returns true if
// this is the first use (not a replay), false if the code was already spent.
func (c *Client) MarkCodeUsed(ctx context.Context, userID, code string) (bool, error) {
	return c.SetNX(ctx, ReplayKey(userID, code), "used", ReplayTTL)
}
