package in

import (
	"context"

	"minicalen/internal/modules/sync/dto"
	syncin "minicalen/internal/modules/sync/port/in"
)

type CLIHandler struct {
	usecase syncin.Usecase
}

func NewCLIHandler(usecase syncin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) List(ctx context.Context) ([]dto.SessionRow, error) {
	return h.usecase.List(ctx)
}

func (h CLIHandler) Show(ctx context.Context, sessionID string) (dto.ShowOutput, error) {
	return h.usecase.Show(ctx, sessionID)
}

func (h CLIHandler) Delete(ctx context.Context, sessionID string) error {
	return h.usecase.Delete(ctx, sessionID)
}
