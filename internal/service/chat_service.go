package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"invox/internal/domain"
	"invox/internal/port"
	"invox/internal/query"
)

// ChatService answers questions about extracted invoices. Turns are
// stateless: each question is answered against the stored record alone.
type ChatService struct {
	repo   port.InvoiceRepository
	engine *query.Engine
}

func NewChatService(repo port.InvoiceRepository, engine *query.Engine) *ChatService {
	return &ChatService{repo: repo, engine: engine}
}

// Ask answers a question about the given invoice.
func (s *ChatService) Ask(ctx context.Context, invoiceID uuid.UUID, message string) (*domain.ChatTurn, error) {
	inv, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	answer, err := s.engine.Answer(ctx, inv, message)
	if err != nil {
		return nil, err
	}
	return &domain.ChatTurn{
		Message:   message,
		InvoiceID: invoiceID,
		Response:  answer,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Suggest returns questions worth asking about the given invoice.
func (s *ChatService) Suggest(ctx context.Context, invoiceID uuid.UUID) ([]string, error) {
	inv, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return s.engine.SuggestQuestions(ctx, inv)
}
