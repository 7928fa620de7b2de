package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/actoengine/actoengine/pkg/adapters/datasource"
)

// ConnectionService verifies caller-supplied connection strings against live
// targets. The raw string is parsed, used for one connection attempt and
// discarded; nothing from it is persisted.
type ConnectionService interface {
	Verify(ctx context.Context, rawConnectionString string) (datasource.ConnectionResult, error)
}

type connectionService struct {
	logger *zap.Logger
}

var _ ConnectionService = (*connectionService)(nil)

// NewConnectionService creates a ConnectionService.
func NewConnectionService(logger *zap.Logger) ConnectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &connectionService{logger: logger}
}

// Verify parses the raw connection string and makes a single classified
// connection attempt. A parse failure is returned as an error; a failed
// connection is a valid result with Valid=false.
func (s *connectionService) Verify(ctx context.Context, rawConnectionString string) (datasource.ConnectionResult, error) {
	info, err := datasource.ParseConnectionString(rawConnectionString)
	if err != nil {
		return datasource.ConnectionResult{}, fmt.Errorf("invalid connection string: %w", err)
	}

	adapter, err := datasource.ForEngine(info.Engine)
	if err != nil {
		return datasource.ConnectionResult{}, err
	}

	result := adapter.TestConnection(ctx, info)
	s.logger.Info("connection verification",
		zap.String("host", info.Host),
		zap.String("database", info.Database),
		zap.Bool("valid", result.Valid),
		zap.String("code", result.Code))
	return result, nil
}
