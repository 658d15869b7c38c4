package services

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journal-api/models"
	"journal-api/repository"
)

type stubOrcid struct {
	identity *OrcidIdentity
	err      error
	codes    []string
}

func (s *stubOrcid) AuthorizeURL(state string) string {
	return "https://sandbox.orcid.org/oauth/authorize?state=" + url.QueryEscape(state)
}

func (s *stubOrcid) Exchange(ctx context.Context, code string) (*OrcidIdentity, error) {
	s.codes = append(s.codes, code)
	return s.identity, s.err
}

func newUserService(t *testing.T) (*UserService, *repository.MemoryStore, *stubOrcid) {
	t.Helper()
	store := repository.NewMemoryStore()
	orcid := &stubOrcid{identity: &OrcidIdentity{OrcidID: "0000-0002-1825-0097", Name: "Ada"}}
	svc := NewUserService(store, NewTokenService("test-secret", time.Hour), orcid, nil)
	return svc, store, orcid
}

func register(t *testing.T, svc *UserService, email string) *Session {
	t.Helper()
	s, err := svc.Register(context.Background(), RegisterInput{
		Name:      "Ada Lovelace",
		Email:     email,
		Password:  "correct horse",
		Expertise: []string{"graphs", "Graphs", " "},
	})
	require.NoError(t, err)
	return s
}

func TestRegisterCreatesActiveAuthor(t *testing.T) {
	svc, _, _ := newUserService(t)
	s := register(t, svc, " Ada@Example.org ")

	assert.NotEmpty(t, s.Token)
	assert.Equal(t, "ada@example.org", s.User.Email)
	assert.True(t, s.User.IsActive)
	assert.Equal(t, models.RoleAuthor, s.User.Roles)
	assert.Equal(t, models.StringList{"graphs"}, s.User.Expertise)
	assert.NotEqual(t, "correct horse", s.User.Password)
	assert.True(t, CheckPasswordHash("correct horse", s.User.Password))

	u, err := svc.Authenticate(context.Background(), s.Token)
	require.NoError(t, err)
	assert.Equal(t, s.User.UserID, u.UserID)
}

func TestRegisterRejectsDuplicatesAndWeakInput(t *testing.T) {
	svc, _, _ := newUserService(t)
	register(t, svc, "ada@example.org")

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Again", Email: "ADA@example.org", Password: "another pass"})
	requireKind(t, err, KindValidation)

	_, err = svc.Register(context.Background(), RegisterInput{Name: "Short", Email: "short@example.org", Password: "abc"})
	requireKind(t, err, KindValidation)

	_, err = svc.Register(context.Background(), RegisterInput{Name: "Bad", Email: "not-an-email", Password: "long enough"})
	requireKind(t, err, KindValidation)
}

func TestLoginDoesNotRevealWhichPartFailed(t *testing.T) {
	svc, store, _ := newUserService(t)
	s := register(t, svc, "ada@example.org")
	ctx := context.Background()

	_, errUnknown := svc.Login(ctx, LoginInput{Email: "nobody@example.org", Password: "correct horse"})
	_, errWrong := svc.Login(ctx, LoginInput{Email: "ada@example.org", Password: "wrong horse"})
	requireKind(t, errUnknown, KindUnauthenticated)
	requireKind(t, errWrong, KindUnauthenticated)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())

	ok, err := svc.Login(ctx, LoginInput{Email: "ADA@example.org", Password: "correct horse"})
	require.NoError(t, err)
	assert.NotNil(t, ok.User.LastLoginAt)

	u, err := store.Users().Get(ctx, s.User.UserID)
	require.NoError(t, err)
	u.IsActive = false
	require.NoError(t, store.Users().Update(ctx, u))
	_, err = svc.Login(ctx, LoginInput{Email: "ada@example.org", Password: "correct horse"})
	requireKind(t, err, KindForbidden)
	_, err = svc.Authenticate(ctx, s.Token)
	requireKind(t, err, KindForbidden)
}

func TestAuthenticateRejectsStateTokens(t *testing.T) {
	svc, _, _ := newUserService(t)
	s := register(t, svc, "ada@example.org")

	state, err := svc.Tokens.IssueState(s.User)
	require.NoError(t, err)
	_, err = svc.Authenticate(context.Background(), state)
	requireKind(t, err, KindUnauthenticated)

	_, err = svc.Authenticate(context.Background(), "garbage")
	requireKind(t, err, KindUnauthenticated)
}

func TestUpdateProfile(t *testing.T) {
	svc, _, _ := newUserService(t)
	s := register(t, svc, "ada@example.org")
	name := "  Ada King "
	empty := "   "

	u, err := svc.UpdateProfile(context.Background(), s.User, ProfileInput{Name: &name, Country: &empty, Expertise: []string{"logic"}})
	require.NoError(t, err)
	assert.Equal(t, "Ada King", u.Name)
	assert.Nil(t, u.Country)
	assert.Equal(t, models.StringList{"logic"}, u.Expertise)

	_, err = svc.UpdateProfile(context.Background(), s.User, ProfileInput{Name: &empty})
	requireKind(t, err, KindValidation)
}

func TestUpdateRolesAndDeactivation(t *testing.T) {
	svc, store, _ := newUserService(t)
	ctx := context.Background()
	chief := &models.User{Name: "Chief", Email: "chief@example.org", Roles: models.RoleEditorInChief, IsActive: true}
	require.NoError(t, store.Users().Create(ctx, chief))
	s := register(t, svc, "ada@example.org")

	u, err := svc.UpdateRoles(ctx, chief, RolesInput{UserID: s.User.UserID, Roles: models.RoleAuthor.With(models.RoleReviewer)})
	require.NoError(t, err)
	assert.True(t, u.Roles.Has(models.RoleReviewer))

	_, err = svc.UpdateRoles(ctx, chief, RolesInput{UserID: chief.UserID, Roles: models.RoleEditor})
	requireKind(t, err, KindValidation)

	_, err = svc.UpdateRoles(ctx, s.User, RolesInput{UserID: s.User.UserID, Roles: models.RoleEditorInChief})
	requireKind(t, err, KindForbidden)

	_, err = svc.SetActive(ctx, chief, chief.UserID, false)
	requireKind(t, err, KindValidation)

	u, err = svc.SetActive(ctx, chief, s.User.UserID, false)
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	inactive := false
	rows, total, err := svc.ListUsers(ctx, chief, repository.UserFilter{Active: &inactive})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, s.User.UserID, rows[0].UserID)
}

func TestOrcidLinkFlow(t *testing.T) {
	svc, store, orcid := newUserService(t)
	ctx := context.Background()
	s := register(t, svc, "ada@example.org")

	link, err := svc.OrcidAuthURL(ctx, s.User)
	require.NoError(t, err)
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)

	u, err := svc.OrcidCallback(ctx, "code-1", state)
	require.NoError(t, err)
	assert.True(t, u.OrcidVerified)
	require.NotNil(t, u.OrcidID)
	assert.Equal(t, "0000-0002-1825-0097", *u.OrcidID)
	assert.Equal(t, []string{"code-1"}, orcid.codes)
	assert.NoError(t, RequireSubmitter(u))

	owner, err := store.Users().GetByIdentity(ctx, models.ProviderOrcid, "0000-0002-1825-0097")
	require.NoError(t, err)
	assert.Equal(t, s.User.UserID, owner.UserID)

	other := register(t, svc, "grace@example.org")
	otherState, err := svc.Tokens.IssueState(other.User)
	require.NoError(t, err)
	_, err = svc.OrcidCallback(ctx, "code-2", otherState)
	requireKind(t, err, KindConflict)

	u, err = svc.OrcidUnlink(ctx, s.User)
	require.NoError(t, err)
	assert.False(t, u.OrcidVerified)
	assert.Nil(t, u.OrcidID)
	requireKind(t, RequireSubmitter(u), KindForbidden)

	_, err = svc.OrcidUnlink(ctx, s.User)
	requireKind(t, err, KindInvalidState)
}

func TestOrcidCallbackFailures(t *testing.T) {
	svc, _, orcid := newUserService(t)
	ctx := context.Background()
	s := register(t, svc, "ada@example.org")
	state, err := svc.Tokens.IssueState(s.User)
	require.NoError(t, err)

	_, err = svc.OrcidCallback(ctx, "", state)
	requireKind(t, err, KindValidation)

	session, _, err := svc.Tokens.Issue(s.User)
	require.NoError(t, err)
	_, err = svc.OrcidCallback(ctx, "code", session)
	requireKind(t, err, KindUnauthenticated)

	orcid.err = errors.New("orcid down")
	_, err = svc.OrcidCallback(ctx, "code", state)
	requireKind(t, err, KindUpstream)

	orcid.err = nil
	orcid.identity = &OrcidIdentity{OrcidID: "not-an-orcid"}
	_, err = svc.OrcidCallback(ctx, "code", state)
	requireKind(t, err, KindUpstream)
}

func TestLinkGoogle(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()
	a := register(t, svc, "ada@example.org")
	b := register(t, svc, "grace@example.org")

	u, err := svc.LinkGoogle(ctx, a.User, "g-123")
	require.NoError(t, err)
	require.NotNil(t, u.GoogleID)
	assert.Equal(t, "g-123", *u.GoogleID)

	_, err = svc.LinkGoogle(ctx, a.User, "g-123")
	require.NoError(t, err)

	_, err = svc.LinkGoogle(ctx, b.User, "g-123")
	requireKind(t, err, KindConflict)

	_, err = svc.LinkGoogle(ctx, b.User, " ")
	requireKind(t, err, KindValidation)
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenService("s3cret", time.Minute)
	u := &models.User{UserID: 42, Email: "x@example.org"}
	raw, expires, err := tokens.Issue(u)
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, 42, claims.UserID)

	_, err = NewTokenService("other", time.Minute).Parse(raw)
	requireKind(t, err, KindUnauthenticated)
}
