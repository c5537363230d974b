package selfaccess

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gridwell/espi-self-access/interfaces"
)

// MockUsageRetriever implements a mock interfaces.UsageRetriever for
// testing notification handling without a live custodian.
type MockUsageRetriever struct {
	mock.Mock
}

// FetchUsage implements the UsageRetriever interface for testing.
// The behavior is determined by how the mock is configured in tests.
func (m *MockUsageRetriever) FetchUsage(ctx context.Context, resource interfaces.ResourceURI) ([]byte, error) {
	args := m.Called(ctx, resource)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
