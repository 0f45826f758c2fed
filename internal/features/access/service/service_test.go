package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "vpn-bot-backend/internal/common/errors"
	"vpn-bot-backend/internal/features/access/models"
	"vpn-bot-backend/internal/features/access/repository"
	accesssqlite "vpn-bot-backend/internal/features/access/repository/sqlite"
	platform "vpn-bot-backend/internal/platform/sqlite"
)

type stubProvisioner struct {
	clients   []string
	createErr error
	deleteErr error
	listErr   error

	created []string
	deleted []string
}

func (p *stubProvisioner) Create(ctx context.Context, clientName string) error {
	if p.createErr != nil {
		return p.createErr
	}
	p.created = append(p.created, clientName)
	p.clients = append(p.clients, clientName)
	return nil
}

func (p *stubProvisioner) Delete(ctx context.Context, clientName string) error {
	if p.deleteErr != nil {
		return p.deleteErr
	}
	p.deleted = append(p.deleted, clientName)
	remaining := p.clients[:0]
	for _, c := range p.clients {
		if c != clientName {
			remaining = append(remaining, c)
		}
	}
	p.clients = remaining
	return nil
}

func (p *stubProvisioner) List(ctx context.Context) ([]string, error) {
	if p.listErr != nil {
		return nil, p.listErr
	}
	return append([]string(nil), p.clients...), nil
}

type recordingNotifier struct {
	newRequests int
	approved    int
	rejected    int
	revoked     int
}

func (n *recordingNotifier) NotifyNewRequest(ctx context.Context, request *models.PendingRequest) {
	n.newRequests++
}
func (n *recordingNotifier) NotifyApproved(ctx context.Context, userID int64, profileName string) {
	n.approved++
}
func (n *recordingNotifier) NotifyRejected(ctx context.Context, userID int64) { n.rejected++ }
func (n *recordingNotifier) NotifyRevoked(ctx context.Context, userID int64)  { n.revoked++ }

func newTestAccess(t *testing.T, provisioner *stubProvisioner, notifier *recordingNotifier) (AccessService, repository.UserRepository) {
	t.Helper()
	db, err := platform.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := accesssqlite.NewUserRepository(db)
	return NewAccessService(repo, provisioner, notifier), repo
}

func TestSubmitAndApprove(t *testing.T) {
	ctx := context.Background()
	provisioner := &stubProvisioner{}
	notifier := &recordingNotifier{}
	access, _ := newTestAccess(t, provisioner, notifier)

	require.NoError(t, access.SubmitRequest(ctx, 42, "alice", "Alice A"))
	assert.Equal(t, 1, notifier.newRequests)

	state, err := access.State(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, models.AccessStatePending, state)

	require.NoError(t, access.Approve(ctx, 42, "alice"))
	assert.Equal(t, []string{"alice"}, provisioner.created)
	assert.Equal(t, 1, notifier.approved)

	state, err = access.State(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, models.AccessStateApproved, state)

	user, err := access.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.ProfileName)
	assert.True(t, user.Approved)

	// The request is resolved; approving again is an error.
	err = access.Approve(ctx, 42, "alice")
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeNotFound, errs.CodeOf(err))
}

func TestSubmitTwiceIsAlreadyPending(t *testing.T) {
	ctx := context.Background()
	access, _ := newTestAccess(t, &stubProvisioner{}, &recordingNotifier{})

	require.NoError(t, access.SubmitRequest(ctx, 42, "alice", "Alice A"))
	err := access.SubmitRequest(ctx, 42, "alice", "Alice A")
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeAlreadyPending, errs.CodeOf(err))
}

func TestApproveInvalidProfileName(t *testing.T) {
	ctx := context.Background()
	provisioner := &stubProvisioner{}
	access, _ := newTestAccess(t, provisioner, &recordingNotifier{})

	require.NoError(t, access.SubmitRequest(ctx, 42, "alice", "Alice A"))

	err := access.Approve(ctx, 42, "bad name!")
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeInvalidProfileName, errs.CodeOf(err))
	assert.Empty(t, provisioner.created, "validation must precede provisioning")

	// The request is still open.
	state, err := access.State(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, models.AccessStatePending, state)
}

func TestApproveProvisioningFailureKeepsRequest(t *testing.T) {
	ctx := context.Background()
	provisioner := &stubProvisioner{createErr: errors.New("exit 1: disk full")}
	notifier := &recordingNotifier{}
	access, _ := newTestAccess(t, provisioner, notifier)

	require.NoError(t, access.SubmitRequest(ctx, 42, "alice", "Alice A"))

	err := access.Approve(ctx, 42, "alice")
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeProvisioning, errs.CodeOf(err))
	assert.Zero(t, notifier.approved)

	state, err := access.State(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, models.AccessStatePending, state, "request must survive a provisioning failure")

	// Retry succeeds after the script recovers.
	provisioner.createErr = nil
	require.NoError(t, access.Approve(ctx, 42, "alice"))
	assert.Equal(t, 1, notifier.approved)
}

func TestApproveSkipsExistingClient(t *testing.T) {
	ctx := context.Background()
	provisioner := &stubProvisioner{clients: []string{"alice"}}
	access, _ := newTestAccess(t, provisioner, &recordingNotifier{})

	require.NoError(t, access.SubmitRequest(ctx, 42, "alice", "Alice A"))
	require.NoError(t, access.Approve(ctx, 42, "alice"))
	assert.Empty(t, provisioner.created, "existing client must not be re-created")
}

func TestApproveTakenProfileName(t *testing.T) {
	ctx := context.Background()
	access, _ := newTestAccess(t, &stubProvisioner{}, &recordingNotifier{})

	require.NoError(t, access.SubmitRequest(ctx, 1, "alice", "Alice A"))
	require.NoError(t, access.Approve(ctx, 1, "alice"))

	require.NoError(t, access.SubmitRequest(ctx, 2, "mallory", "Mallory M"))
	err := access.Approve(ctx, 2, "alice")
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeValidation, errs.CodeOf(err))
}

func TestRejectAllowsResubmission(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	access, _ := newTestAccess(t, &stubProvisioner{}, notifier)

	require.NoError(t, access.SubmitRequest(ctx, 42, "alice", "Alice A"))
	require.NoError(t, access.Reject(ctx, 42))
	assert.Equal(t, 1, notifier.rejected)

	state, err := access.State(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, models.AccessStateUnregistered, state)

	// Rejection is not a ban.
	require.NoError(t, access.SubmitRequest(ctx, 42, "alice", "Alice A"))

	// Rejecting with nothing pending is an error.
	require.NoError(t, access.Reject(ctx, 42))
	err = access.Reject(ctx, 42)
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeNotFound, errs.CodeOf(err))
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	provisioner := &stubProvisioner{}
	notifier := &recordingNotifier{}
	access, _ := newTestAccess(t, provisioner, notifier)

	require.NoError(t, access.SubmitRequest(ctx, 42, "alice", "Alice A"))
	require.NoError(t, access.Approve(ctx, 42, "alice"))

	require.NoError(t, access.Revoke(ctx, 42))
	assert.Equal(t, []string{"alice"}, provisioner.deleted)
	assert.Equal(t, 1, notifier.revoked)

	user, err := access.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.False(t, user.Approved)
	assert.Empty(t, user.ProfileName)

	// Revoking again is safe: the client is already gone.
	require.NoError(t, access.Revoke(ctx, 42))
	assert.Equal(t, []string{"alice"}, provisioner.deleted)

	// Unknown users revoke to a no-op.
	require.NoError(t, access.Revoke(ctx, 999))
}

func TestRevokeKeepsBalance(t *testing.T) {
	ctx := context.Background()
	access, repo := newTestAccess(t, &stubProvisioner{}, &recordingNotifier{})

	require.NoError(t, access.SubmitRequest(ctx, 42, "alice", "Alice A"))
	require.NoError(t, access.Approve(ctx, 42, "alice"))
	require.NoError(t, access.Revoke(ctx, 42))

	// The user row survives revocation so the ledger keeps its history.
	user, err := repo.GetByID(ctx, 42)
	require.NoError(t, err)
	assert.True(t, user.Balance.IsZero())
}

func TestSetEmoji(t *testing.T) {
	ctx := context.Background()
	access, _ := newTestAccess(t, &stubProvisioner{}, &recordingNotifier{})

	require.NoError(t, access.SetEmoji(ctx, 42, "🚀"))
	user, err := access.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "🚀", user.Emoji)
}

func TestListPending(t *testing.T) {
	ctx := context.Background()
	access, _ := newTestAccess(t, &stubProvisioner{}, &recordingNotifier{})

	require.NoError(t, access.SubmitRequest(ctx, 1, "alice", "Alice A"))
	require.NoError(t, access.SubmitRequest(ctx, 2, "bob", "Bob B"))

	pending, err := access.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
}
