package ticket

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/partystacker/internal/model"
	"github.com/iliyamo/partystacker/internal/repository"
	"github.com/iliyamo/partystacker/internal/repository/memory"
)

func TestIssueCreatesSignedTicket(t *testing.T) {
	store := memory.NewTicketRepo()
	signer := NewSigner("secret", 0)
	iss := NewIssuer(store, signer)

	tk, created, err := iss.Issue(context.Background(), IssueRequest{
		EventID: "E1", Buyer: "ST1BUYER", Tier: model.TierGeneral, TransactionID: "0xabc",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, strings.HasPrefix(tk.ID, "tkt-"))
	assert.Equal(t, "0xabc", tk.PurchaseTxHash)
	assert.False(t, tk.CheckedIn)

	p, err := signer.Verify(tk.QRCodeData)
	require.NoError(t, err)
	assert.Equal(t, tk.ID, p.TicketID)
	assert.Equal(t, "ST1BUYER", p.OwnerAddress)
}

func TestIssueIsIdempotentPerTransaction(t *testing.T) {
	store := memory.NewTicketRepo()
	iss := NewIssuer(store, NewSigner("secret", 0))
	req := IssueRequest{EventID: "E1", Buyer: "ST1BUYER", Tier: model.TierGeneral, TransactionID: "0xabc"}

	first, created, err := iss.Issue(context.Background(), req)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := iss.Issue(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, store.Count())

	other := req
	other.EventID = "E2"
	_, created, err = iss.Issue(context.Background(), other)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestIssueConcurrentSameTransaction(t *testing.T) {
	store := memory.NewTicketRepo()
	iss := NewIssuer(store, NewSigner("secret", 0))
	req := IssueRequest{EventID: "E1", Buyer: "ST1BUYER", Tier: model.TierVIP, TransactionID: "0xrace"}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = map[string]bool{}
		created int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tk, c, err := iss.Issue(context.Background(), req)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids[tk.ID] = true
			if c {
				created++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
	assert.Len(t, ids, 1)
	assert.Equal(t, 1, store.Count())
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetByTransaction(ctx context.Context, eventID, txID string) (*model.Ticket, error) {
	args := m.Called(ctx, eventID, txID)
	tk, _ := args.Get(0).(*model.Ticket)
	return tk, args.Error(1)
}

func (m *MockStore) Create(ctx context.Context, tk *model.Ticket) error {
	return m.Called(ctx, tk).Error(0)
}

func TestIssueLosesInsertRace(t *testing.T) {
	winner := &model.Ticket{ID: "tkt-winner", EventID: "E1", PurchaseTxHash: "0xabc"}
	store := new(MockStore)
	store.On("GetByTransaction", mock.Anything, "E1", "0xabc").Return(nil, repository.ErrTicketNotFound).Once()
	store.On("Create", mock.Anything, mock.AnythingOfType("*model.Ticket")).Return(repository.ErrDuplicateTransaction)
	store.On("GetByTransaction", mock.Anything, "E1", "0xabc").Return(winner, nil).Once()

	tk, created, err := NewIssuer(store, NewSigner("s", 0)).Issue(context.Background(),
		IssueRequest{EventID: "E1", Buyer: "ST1", Tier: model.TierGeneral, TransactionID: "0xabc"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "tkt-winner", tk.ID)
	store.AssertExpectations(t)
}

func TestIssueStoreError(t *testing.T) {
	boom := errors.New("disk full")
	store := new(MockStore)
	store.On("GetByTransaction", mock.Anything, "E1", "0xabc").Return(nil, repository.ErrTicketNotFound)
	store.On("Create", mock.Anything, mock.Anything).Return(boom)

	tk, created, err := NewIssuer(store, NewSigner("s", 0)).Issue(context.Background(),
		IssueRequest{EventID: "E1", Buyer: "ST1", Tier: model.TierGeneral, TransactionID: "0xabc"})
	assert.ErrorIs(t, err, boom)
	assert.False(t, created)
	assert.Nil(t, tk)
}

func TestExisting(t *testing.T) {
	store := memory.NewTicketRepo()
	iss := NewIssuer(store, NewSigner("secret", 0))

	tk, err := iss.Existing(context.Background(), "E1", "0xnone")
	require.NoError(t, err)
	assert.Nil(t, tk)

	issued, _, err := iss.Issue(context.Background(), IssueRequest{EventID: "E1", Buyer: "ST1", Tier: model.TierGeneral, TransactionID: "0x1"})
	require.NoError(t, err)
	tk, err = iss.Existing(context.Background(), "E1", "0x1")
	require.NoError(t, err)
	assert.Equal(t, issued.ID, tk.ID)
}
