package in

import (
	"context"

	"minicalen/internal/modules/sync/dto"
)

type Usecase interface {
	Save(ctx context.Context) (dto.SaveOutput, error)
	Load(ctx context.Context, sessionID string) (dto.LoadOutput, error)
	Resume(ctx context.Context) (dto.LoadOutput, error)
	List(ctx context.Context) ([]dto.SessionRow, error)
	Show(ctx context.Context, sessionID string) (dto.ShowOutput, error)
	Delete(ctx context.Context, sessionID string) error
}
