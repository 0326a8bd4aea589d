package contest

import (
	"context"
	"fmt"

	"ojarena/pkg/errors"
	"ojarena/pkg/utils/contextkey"
	"ojarena/pkg/utils/logger"

	"go.uber.org/zap"
)

// Join registers the current user for a contest and returns the refreshed
// contest. Joining twice is not an error.
func Join(ctx context.Context, client ContestClient, contestID string) (*Contest, error) {
	ctx = context.WithValue(ctx, contextkey.ContestID, contestID)
	if err := client.Join(ctx, contestID); err != nil && !errors.Is(err, errors.AlreadyRegistered) {
		logger.Warn(ctx, "join contest failed", zap.Error(err))
		return nil, fmt.Errorf("join contest: %w", err)
	}
	c, err := client.Get(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("load contest: %w", err)
	}
	logger.Info(ctx, "joined contest", zap.Bool("participant", c.IsParticipant))
	return c, nil
}
