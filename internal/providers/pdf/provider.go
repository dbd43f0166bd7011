package pdf

import (
	"context"
	"io"
)

// Provider renders printable documents for bills.
type Provider interface {
	GenerateBillStatement(ctx context.Context, data StatementData) (io.Reader, error)
}

type NoOpProvider struct{}

func (p *NoOpProvider) GenerateBillStatement(ctx context.Context, data StatementData) (io.Reader, error) {
	return nil, nil
}
