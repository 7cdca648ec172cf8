package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diarist/server/internal/application/usecase"
	"github.com/diarist/server/internal/infrastructure/auth"
	"github.com/diarist/server/internal/infrastructure/github"
	"github.com/diarist/server/internal/infrastructure/persistence"
	domainErrors "github.com/diarist/server/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockOAuth struct {
	token string
	err   error
}

func (m *mockOAuth) Configured() bool { return true }

func (m *mockOAuth) AuthURL(state string) string {
	return "https://github.example/authorize?state=" + state
}

func (m *mockOAuth) Exchange(context.Context, string) (string, error) {
	return m.token, m.err
}

type mockCommits struct {
	login   string
	lastDay time.Time
}

func (m *mockCommits) Login(context.Context, string) (string, error) { return m.login, nil }

func (m *mockCommits) CommitsOn(_ context.Context, _, login string, day time.Time) (*github.DayCommits, error) {
	m.lastDay = day
	return &github.DayCommits{Date: day.Format("2006-01-02"), Username: login}, nil
}

func newGitHubUseCase(t *testing.T, oauth *mockOAuth, commits *mockCommits) *usecase.GitHubUseCase {
	t.Helper()
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	return usecase.NewGitHubUseCase(
		persistence.NewMemoryGitHubLinkRepository(),
		oauth, commits,
		auth.NewStateSigner("secret", time.Minute),
		seoul, zap.NewNop(),
	)
}

func TestGitHub_ConnectFlow(t *testing.T) {
	commits := &mockCommits{login: "octocat"}
	uc := newGitHubUseCase(t, &mockOAuth{token: "gho_123"}, commits)
	ctx := context.Background()

	status, err := uc.Status(ctx, alice)
	require.NoError(t, err)
	assert.False(t, status.Connected)

	_, err = uc.Commits(ctx, alice, "")
	assert.True(t, domainErrors.IsNotFound(err))

	authURL, nonce, err := uc.BeginAuth(alice)
	require.NoError(t, err)
	require.NotEmpty(t, nonce)
	state := authURL[len("https://github.example/authorize?state="):]

	_, err = uc.CompleteAuth(ctx, state, "wrong-nonce", "code")
	assert.True(t, domainErrors.IsInvalidInput(err))

	link, err := uc.CompleteAuth(ctx, state, nonce, "code")
	require.NoError(t, err)
	assert.Equal(t, "alice", link.UserID())
	assert.Equal(t, "octocat", link.Username())

	status, err = uc.Status(ctx, alice)
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, "octocat", status.Username)

	day, err := uc.Commits(ctx, alice, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", day.Date)
	assert.Equal(t, "Asia/Seoul", commits.lastDay.Location().String())

	_, err = uc.Commits(ctx, alice, "03/01/2024")
	assert.True(t, domainErrors.IsInvalidInput(err))

	require.NoError(t, uc.Disconnect(ctx, alice))
	status, err = uc.Status(ctx, alice)
	require.NoError(t, err)
	assert.False(t, status.Connected)
}

func TestGitHub_ExchangeFailure(t *testing.T) {
	uc := newGitHubUseCase(t, &mockOAuth{err: errors.New("bad_verification_code")}, &mockCommits{})

	authURL, nonce, err := uc.BeginAuth(alice)
	require.NoError(t, err)
	state := authURL[len("https://github.example/authorize?state="):]

	_, err = uc.CompleteAuth(context.Background(), state, nonce, "code")
	assert.Equal(t, domainErrors.CodeServiceUnavail, domainErrors.CodeOf(err))
}
