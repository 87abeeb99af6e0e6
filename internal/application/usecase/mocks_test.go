package usecase_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/debitcard/internal/domain/event"
	"github.com/bibbank/debitcard/internal/domain/model"
	"github.com/bibbank/debitcard/internal/domain/valueobject"
)

// --- Mock implementations ---

type mockCardRepository struct {
	mu       sync.Mutex
	cards    map[uuid.UUID]model.Card
	saveErr  error
	assignFn func(card model.Card) error

	saved    []model.Card
	updated  []model.Card
	assigned []model.Card
	released []uuid.UUID
	deleted  []uuid.UUID
}

func newMockCardRepository(cards ...model.Card) *mockCardRepository {
	m := &mockCardRepository{cards: make(map[uuid.UUID]model.Card)}
	for _, c := range cards {
		m.cards[c.ID()] = c
	}
	return m
}

func (m *mockCardRepository) Save(_ context.Context, card model.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, card)
	m.cards[card.ID()] = card.ClearEvents()
	return nil
}

func (m *mockCardRepository) Update(_ context.Context, card model.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated = append(m.updated, card)
	m.cards[card.ID()] = card.ClearEvents()
	return nil
}

func (m *mockCardRepository) FindByID(_ context.Context, id uuid.UUID) (model.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return model.Card{}, model.ErrCardNotFound
	}
	return c, nil
}

func (m *mockCardRepository) FindAll(_ context.Context, limit, offset int) ([]model.Card, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Card, 0, len(m.cards))
	for _, c := range m.cards {
		out = append(out, c)
	}
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *mockCardRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cards[id]; !ok {
		return model.ErrCardNotFound
	}
	delete(m.cards, id)
	m.deleted = append(m.deleted, id)
	return nil
}

// AssignPrimaryAccount bumps the stored version like the SQL update does,
// whatever version the caller read.
func (m *mockCardRepository) AssignPrimaryAccount(_ context.Context, card model.Card) (model.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.assignFn != nil {
		if err := m.assignFn(card); err != nil {
			return model.Card{}, err
		}
	}
	stored := m.cards[card.ID()]
	if stored.HasPrimaryAccount() {
		return model.Card{}, model.ErrPrimaryAccountAlreadyAssigned
	}
	m.assigned = append(m.assigned, card)
	m.cards[card.ID()] = model.Reconstruct(stored.ID(), stored.CustomerID(), stored.CardNumber(),
		stored.Status(), card.PrimaryAccountID(), stored.Version()+1, stored.CreatedAt(), card.UpdatedAt())
	return m.cards[card.ID()], nil
}

func (m *mockCardRepository) ReleasePrimaryAccount(_ context.Context, cardID, accountID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = append(m.released, accountID)
	stored := m.cards[cardID]
	if stored.IsPrimaryAccount(accountID) {
		m.cards[cardID] = model.Reconstruct(stored.ID(), stored.CustomerID(), stored.CardNumber(),
			stored.Status(), nil, stored.Version()+1, stored.CreatedAt(), stored.UpdatedAt())
	}
	return nil
}

func (m *mockCardRepository) card(id uuid.UUID) model.Card {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cards[id]
}

type mockAccountClient struct {
	mu             sync.Mutex
	accounts       map[uuid.UUID]model.Account
	listed         []model.Account
	listErr        error
	updateErr      map[uuid.UUID]error
	markPrimaryErr error
	updateDelay    map[uuid.UUID]time.Duration

	updates     []model.Account
	markPrimary []uuid.UUID
	updateOrder []uuid.UUID
}

func newMockAccountClient(accounts ...model.Account) *mockAccountClient {
	m := &mockAccountClient{
		accounts:    make(map[uuid.UUID]model.Account),
		updateErr:   make(map[uuid.UUID]error),
		updateDelay: make(map[uuid.UUID]time.Duration),
	}
	for _, a := range accounts {
		m.accounts[a.ID] = a
	}
	m.listed = accounts
	return m
}

func (m *mockAccountClient) Get(_ context.Context, id uuid.UUID) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return model.Account{}, fmt.Errorf("account %s not found", id)
	}
	return a, nil
}

func (m *mockAccountClient) ListByCard(_ context.Context, _ uuid.UUID) ([]model.Account, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.listed, nil
}

func (m *mockAccountClient) Update(ctx context.Context, account model.Account) (model.Account, error) {
	m.mu.Lock()
	delay := m.updateDelay[account.ID]
	err := m.updateErr[account.ID]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return model.Account{}, ctx.Err()
		}
	}
	if err != nil {
		return model.Account{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, account)
	m.updateOrder = append(m.updateOrder, account.ID)
	m.accounts[account.ID] = account
	return account, nil
}

func (m *mockAccountClient) MarkPrimary(ctx context.Context, id uuid.UUID) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return model.Account{}, err
	}
	m.markPrimary = append(m.markPrimary, id)
	if m.markPrimaryErr != nil {
		return model.Account{}, m.markPrimaryErr
	}
	a := m.accounts[id]
	a.IsPrimary = true
	m.accounts[id] = a
	return a, nil
}

func (m *mockAccountClient) markPrimaryCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.markPrimary)
}

type mockTransactionClient struct {
	mu        sync.Mutex
	createErr map[uuid.UUID]error
	created   []model.Transaction
}

func newMockTransactionClient() *mockTransactionClient {
	return &mockTransactionClient{createErr: make(map[uuid.UUID]error)}
}

func (m *mockTransactionClient) Create(_ context.Context, draft model.Transaction) (model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.createErr[draft.AccountID]; err != nil {
		return model.Transaction{}, err
	}
	draft.ID = uuid.New()
	m.created = append(m.created, draft)
	return draft, nil
}

func (m *mockTransactionClient) createdFor(accountID uuid.UUID) []model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Transaction
	for _, t := range m.created {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out
}

type publishedBatch struct {
	topic  string
	events []event.DomainEvent
}

type mockEventPublisher struct {
	mu         sync.Mutex
	batches    []publishedBatch
	publishErr error
}

func (m *mockEventPublisher) Publish(_ context.Context, topic string, events ...event.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.batches = append(m.batches, publishedBatch{topic: topic, events: events})
	return nil
}

func (m *mockEventPublisher) published() []publishedBatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publishedBatch(nil), m.batches...)
}

type metricCall struct {
	kind  string
	label string
}

type mockMetrics struct {
	mu    sync.Mutex
	calls []metricCall
}

func (m *mockMetrics) PaymentCompleted(_ context.Context, _, _ decimal.Decimal, participants int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, metricCall{kind: "payment_completed", label: fmt.Sprint(participants)})
}

func (m *mockMetrics) PaymentFailed(_ context.Context, step string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, metricCall{kind: "payment_failed", label: step})
}

func (m *mockMetrics) PrimaryAccountAssociation(_ context.Context, path, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, metricCall{kind: "association", label: path + "/" + outcome})
}

// --- Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func activeCard(t *testing.T) model.Card {
	t.Helper()
	cn, err := valueobject.NewCardNumber("4242", "12", "2099")
	require.NoError(t, err)
	now := time.Now().UTC()
	return model.Reconstruct(uuid.New(), uuid.New(), cn, valueobject.CardStatusActive, nil, 1, now, now)
}

func cardWithPrimary(t *testing.T, accountID uuid.UUID) model.Card {
	t.Helper()
	c := activeCard(t)
	return model.Reconstruct(c.ID(), c.CustomerID(), c.CardNumber(), c.Status(), &accountID, 2, c.CreatedAt(), c.UpdatedAt())
}

func linkedAccount(cardID uuid.UUID, number string, balance string, primary bool, associated time.Time) model.Account {
	id := cardID
	return model.Account{
		ID:              uuid.New(),
		NumberAccount:   number,
		CustomerID:      uuid.New(),
		DebitCardID:     &id,
		Balance:         decimal.RequireFromString(balance),
		IsPrimary:       primary,
		AssociationDate: associated,
	}
}
