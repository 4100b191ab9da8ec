package server

import (
	"context"

	"handoffd/fulfillment"
)

// HandoffService is the facade the transport layer talks to; it delegates
// to the repository, which owns all state.
type HandoffService struct {
	repo *fulfillment.Repository
}

func NewHandoffService(repo *fulfillment.Repository) *HandoffService {
	return &HandoffService{repo: repo}
}

func (hs *HandoffService) Create(ctx context.Context, itemDescription, senderName, intermediaryName, recipientName string) (*fulfillment.Fulfillment, string, error) {
	return hs.repo.Create(ctx, itemDescription, senderName, intermediaryName, recipientName)
}

func (hs *HandoffService) ConfirmDropOff(ctx context.Context, token string) fulfillment.Result {
	return hs.repo.ConfirmDropOff(ctx, token)
}

func (hs *HandoffService) ConfirmCollection(ctx context.Context, id, secret string) fulfillment.Result {
	return hs.repo.ConfirmCollection(ctx, id, secret)
}

func (hs *HandoffService) AdvanceStatusUnchecked(ctx context.Context, id string, status fulfillment.Status) fulfillment.Result {
	return hs.repo.AdvanceStatusUnchecked(ctx, id, status)
}

func (hs *HandoffService) Delete(ctx context.Context, id string) fulfillment.Result {
	return hs.repo.Delete(ctx, id)
}

func (hs *HandoffService) Get(id string) (*fulfillment.Fulfillment, bool) {
	return hs.repo.Get(id)
}

func (hs *HandoffService) List() []*fulfillment.Fulfillment {
	return hs.repo.List()
}

func (hs *HandoffService) Subscribe() (<-chan []*fulfillment.Fulfillment, func()) {
	return hs.repo.Subscribe()
}
