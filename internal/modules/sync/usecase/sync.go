package usecase

import (
	"context"

	"minicalen/internal/modules/sync/dto"
	syncin "minicalen/internal/modules/sync/port/in"
	"minicalen/internal/modules/sync/service"
)

type Interactor struct {
	svc *service.SyncService
}

func NewInteractor(svc *service.SyncService) syncin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Save(ctx context.Context) (dto.SaveOutput, error) {
	session, created, err := i.svc.Save(ctx)
	if err != nil {
		return dto.SaveOutput{}, err
	}
	return dto.SaveOutput{SessionID: session.ID, Timestamp: session.Timestamp, Created: created}, nil
}

func (i *Interactor) Load(ctx context.Context, sessionID string) (dto.LoadOutput, error) {
	session, err := i.svc.Load(ctx, sessionID)
	if err != nil {
		return dto.LoadOutput{}, err
	}
	return dto.LoadOutput{SessionID: session.ID, Timestamp: session.Timestamp}, nil
}

func (i *Interactor) Resume(ctx context.Context) (dto.LoadOutput, error) {
	session, err := i.svc.Resume(ctx)
	if err != nil {
		return dto.LoadOutput{}, err
	}
	return dto.LoadOutput{SessionID: session.ID, Timestamp: session.Timestamp}, nil
}

func (i *Interactor) List(ctx context.Context) ([]dto.SessionRow, error) {
	infos, err := i.svc.List(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]dto.SessionRow, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, dto.SessionRow{ID: info.ID, Timestamp: info.Timestamp})
	}
	return rows, nil
}

func (i *Interactor) Show(ctx context.Context, sessionID string) (dto.ShowOutput, error) {
	info, snap, err := i.svc.Describe(ctx, sessionID)
	if err != nil {
		return dto.ShowOutput{}, err
	}
	return dto.ShowOutput{
		SessionID:       info.ID,
		Timestamp:       info.Timestamp,
		CategoryCount:   len(snap.ForegroundCategories),
		TagCount:        len(snap.TextCategories),
		AnnotationCount: len(snap.AnnotationMap()),
	}, nil
}

func (i *Interactor) Delete(ctx context.Context, sessionID string) error {
	return i.svc.Delete(ctx, sessionID)
}
