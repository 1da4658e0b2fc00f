package session

import "context"

type Repository interface {
	Validate(ctx context.Context, tokenHash string) (int64, error)
}
