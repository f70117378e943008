package user

import (
	"context"
	"encoding/base64"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"foodgram/domain"
	"foodgram/entities"
	"foodgram/pkg/jwt"
)

// ---------------------------------------------------------------------------
// in-memory mocks
// ---------------------------------------------------------------------------

type subscriptionKey struct {
	userID   uint
	authorID uint
}

type mockUserRepo struct {
	users   map[uint]*entities.User
	subs    map[subscriptionKey]bool
	recipes []*entities.Recipe
	nextID  uint

	// forced error for the concurrent-registration path
	createUserErr error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users: make(map[uint]*entities.User),
		subs:  make(map[subscriptionKey]bool),
	}
}

func (m *mockUserRepo) CreateUser(_ context.Context, user *entities.User) error {
	if m.createUserErr != nil {
		return m.createUserErr
	}
	m.nextID++
	user.ID = m.nextID
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id uint) (*entities.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	result := *user
	return &result, nil
}

func (m *mockUserRepo) GetUserByEmail(_ context.Context, email string) (*entities.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			result := *user
			return &result, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetUserByUsername(_ context.Context, username string) (*entities.User, error) {
	for _, user := range m.users {
		if user.Username == username {
			result := *user
			return &result, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) UpdateUser(_ context.Context, user *entities.User) error {
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetUsers(_ context.Context, page, limit int) ([]*entities.User, int64, error) {
	users := make([]*entities.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })

	count := int64(len(users))
	offset := (page - 1) * limit
	if offset >= len(users) {
		return nil, count, nil
	}
	users = users[offset:]
	if limit < len(users) {
		users = users[:limit]
	}
	return users, count, nil
}

func (m *mockUserRepo) CreateSubscription(_ context.Context, subscription *entities.Subscription) error {
	k := subscriptionKey{subscription.UserID, subscription.AuthorID}
	if m.subs[k] {
		return gorm.ErrDuplicatedKey
	}
	m.subs[k] = true
	return nil
}

func (m *mockUserRepo) DeleteSubscription(_ context.Context, userID, authorID uint) (int64, error) {
	k := subscriptionKey{userID, authorID}
	if !m.subs[k] {
		return 0, nil
	}
	delete(m.subs, k)
	return 1, nil
}

func (m *mockUserRepo) IsSubscribed(_ context.Context, userID, authorID uint) (bool, error) {
	return m.subs[subscriptionKey{userID, authorID}], nil
}

func (m *mockUserRepo) GetSubscribedAuthors(_ context.Context, userID uint, page, limit int) ([]*entities.User, int64, error) {
	var authors []*entities.User
	for k := range m.subs {
		if k.userID == userID {
			authors = append(authors, m.users[k.authorID])
		}
	}
	sort.Slice(authors, func(i, j int) bool { return authors[i].Username < authors[j].Username })
	return authors, int64(len(authors)), nil
}

func (m *mockUserRepo) GetRecipesByAuthor(_ context.Context, authorID uint, limit int) ([]*entities.Recipe, error) {
	var recipes []*entities.Recipe
	for _, r := range m.recipes {
		if r.AuthorID == authorID {
			recipes = append(recipes, r)
		}
	}
	if limit > 0 && limit < len(recipes) {
		recipes = recipes[:limit]
	}
	return recipes, nil
}

func (m *mockUserRepo) CountRecipesByAuthor(_ context.Context, authorID uint) (int64, error) {
	var count int64
	for _, r := range m.recipes {
		if r.AuthorID == authorID {
			count++
		}
	}
	return count, nil
}

type mockAvatarStore struct {
	deleted []string
}

func (m *mockAvatarStore) UploadFile(_ context.Context, key string, _ []byte, _ string) (string, error) {
	return "https://media.test/" + key, nil
}

func (m *mockAvatarStore) DeleteFile(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *mockAvatarStore) KeyFromURL(url string) string { return url }

// ---------------------------------------------------------------------------
// fixtures
// ---------------------------------------------------------------------------

var testAvatar = "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("fake-png-bytes"))

func newTestService(t *testing.T) (UserService, *mockUserRepo) {
	t.Helper()
	repo := newMockUserRepo()
	return NewUserService(repo, jwt.NewJWTService(), &mockAvatarStore{}), repo
}

func seedUser(t *testing.T, repo *mockUserRepo, username, email, password string) *entities.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &entities.User{
		Email:     email,
		Username:  username,
		FirstName: "Test",
		LastName:  "User",
		Password:  string(hashed),
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

// ---------------------------------------------------------------------------
// tests
// ---------------------------------------------------------------------------

func TestRegister(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.Register(context.Background(), domain.UserRegisterRequest{
		Email:     "julia@example.com",
		Username:  "julia",
		FirstName: "Julia",
		LastName:  "Child",
		Password:  "s3cret-pass",
	})
	require.NoError(t, err)
	assert.NotZero(t, res.ID)
	assert.Equal(t, "julia", res.Username)
	assert.False(t, res.IsSubscribed)
	assert.Nil(t, res.Avatar)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, repo := newTestService(t)
	seedUser(t, repo, "julia", "julia@example.com", "s3cret-pass")

	_, err := svc.Register(context.Background(), domain.UserRegisterRequest{
		Email:    "julia@example.com",
		Username: "other",
		Password: "s3cret-pass",
	})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyUsed)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, repo := newTestService(t)
	seedUser(t, repo, "julia", "julia@example.com", "s3cret-pass")

	_, err := svc.Register(context.Background(), domain.UserRegisterRequest{
		Email:    "other@example.com",
		Username: "julia",
		Password: "s3cret-pass",
	})
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)
}

func TestRegisterConcurrentDuplicate(t *testing.T) {
	// The pre-checks pass but the insert hits the unique index.
	svc, repo := newTestService(t)
	repo.createUserErr = gorm.ErrDuplicatedKey

	_, err := svc.Register(context.Background(), domain.UserRegisterRequest{
		Email:    "julia@example.com",
		Username: "julia",
		Password: "s3cret-pass",
	})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyUsed)
}

func TestLogin(t *testing.T) {
	svc, repo := newTestService(t)
	seedUser(t, repo, "julia", "julia@example.com", "s3cret-pass")

	res, err := svc.Login(context.Background(), domain.UserLoginRequest{
		Email:    "julia@example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AuthToken)
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, repo := newTestService(t)
	seedUser(t, repo, "julia", "julia@example.com", "s3cret-pass")

	_, err := svc.Login(context.Background(), domain.UserLoginRequest{
		Email:    "julia@example.com",
		Password: "wrong-pass",
	})
	assert.ErrorIs(t, err, domain.ErrCredentialsInvalid)

	// Unknown email maps to the same error so accounts cannot be probed.
	_, err = svc.Login(context.Background(), domain.UserLoginRequest{
		Email:    "ghost@example.com",
		Password: "s3cret-pass",
	})
	assert.ErrorIs(t, err, domain.ErrCredentialsInvalid)
}

func TestSetPassword(t *testing.T) {
	svc, repo := newTestService(t)
	user := seedUser(t, repo, "julia", "julia@example.com", "old-pass")

	err := svc.SetPassword(context.Background(), domain.SetPasswordRequest{
		CurrentPassword: "wrong-pass",
		NewPassword:     "new-pass",
	}, user.ID)
	assert.ErrorIs(t, err, domain.ErrPasswordIncorrect)

	err = svc.SetPassword(context.Background(), domain.SetPasswordRequest{
		CurrentPassword: "old-pass",
		NewPassword:     "new-pass",
	}, user.ID)
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), domain.UserLoginRequest{
		Email:    "julia@example.com",
		Password: "new-pass",
	})
	assert.NoError(t, err)
}

func TestGetUserByIDSubscriptionFlag(t *testing.T) {
	svc, repo := newTestService(t)
	julia := seedUser(t, repo, "julia", "julia@example.com", "s3cret-pass")
	ivan := seedUser(t, repo, "ivan", "ivan@example.com", "s3cret-pass")
	repo.subs[subscriptionKey{ivan.ID, julia.ID}] = true

	res, err := svc.GetUserByID(context.Background(), julia.ID, ivan.ID)
	require.NoError(t, err)
	assert.True(t, res.IsSubscribed)

	// Own profile never reports a subscription.
	res, err = svc.GetUserByID(context.Background(), ivan.ID, ivan.ID)
	require.NoError(t, err)
	assert.False(t, res.IsSubscribed)

	_, err = svc.GetUserByID(context.Background(), 404, ivan.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestSubscribe(t *testing.T) {
	svc, repo := newTestService(t)
	julia := seedUser(t, repo, "julia", "julia@example.com", "s3cret-pass")
	ivan := seedUser(t, repo, "ivan", "ivan@example.com", "s3cret-pass")

	res, err := svc.Subscribe(context.Background(), julia.ID, ivan.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, julia.ID, res.ID)
	assert.True(t, res.IsSubscribed)

	_, err = svc.Subscribe(context.Background(), julia.ID, ivan.ID, 0)
	assert.ErrorIs(t, err, domain.ErrAlreadySubscribed)
}

func TestSubscribeToSelf(t *testing.T) {
	svc, repo := newTestService(t)
	julia := seedUser(t, repo, "julia", "julia@example.com", "s3cret-pass")

	_, err := svc.Subscribe(context.Background(), julia.ID, julia.ID, 0)
	assert.ErrorIs(t, err, domain.ErrSelfSubscription)

	// Self-subscription wins over every other check, repeated or not.
	_, err = svc.Subscribe(context.Background(), julia.ID, julia.ID, 0)
	assert.ErrorIs(t, err, domain.ErrSelfSubscription)
}

func TestSubscribeUnknownAuthor(t *testing.T) {
	svc, repo := newTestService(t)
	ivan := seedUser(t, repo, "ivan", "ivan@example.com", "s3cret-pass")

	_, err := svc.Subscribe(context.Background(), 404, ivan.ID, 0)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUnsubscribe(t *testing.T) {
	svc, repo := newTestService(t)
	julia := seedUser(t, repo, "julia", "julia@example.com", "s3cret-pass")
	ivan := seedUser(t, repo, "ivan", "ivan@example.com", "s3cret-pass")

	assert.ErrorIs(t, svc.Unsubscribe(context.Background(), julia.ID, ivan.ID), domain.ErrNotSubscribed)

	_, err := svc.Subscribe(context.Background(), julia.ID, ivan.ID, 0)
	require.NoError(t, err)
	require.NoError(t, svc.Unsubscribe(context.Background(), julia.ID, ivan.ID))

	assert.ErrorIs(t, svc.Unsubscribe(context.Background(), 404, ivan.ID), domain.ErrUserNotFound)
}

func TestSubscriptionsRecipesLimit(t *testing.T) {
	svc, repo := newTestService(t)
	julia := seedUser(t, repo, "julia", "julia@example.com", "s3cret-pass")
	ivan := seedUser(t, repo, "ivan", "ivan@example.com", "s3cret-pass")

	for i := 0; i < 5; i++ {
		repo.recipes = append(repo.recipes, &entities.Recipe{
			ID:          uint(i + 1),
			AuthorID:    julia.ID,
			Name:        "Recipe",
			CookingTime: 10,
		})
	}

	_, err := svc.Subscribe(context.Background(), julia.ID, ivan.ID, 0)
	require.NoError(t, err)

	// recipes_limit truncates the embedded list but not the count.
	subs, count, err := svc.GetSubscriptions(context.Background(), ivan.ID, 1, 6, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	require.Len(t, subs, 1)
	assert.Len(t, subs[0].Recipes, 2)
	assert.Equal(t, int64(5), subs[0].RecipesCount)

	// No limit returns everything.
	subs, _, err = svc.GetSubscriptions(context.Background(), ivan.ID, 1, 6, 0)
	require.NoError(t, err)
	assert.Len(t, subs[0].Recipes, 5)
}

func TestAvatarLifecycle(t *testing.T) {
	svc, repo := newTestService(t)
	julia := seedUser(t, repo, "julia", "julia@example.com", "s3cret-pass")

	assert.ErrorIs(t, svc.DeleteAvatar(context.Background(), julia.ID), domain.ErrNoAvatar)

	res, err := svc.UpdateAvatar(context.Background(), domain.UpdateAvatarRequest{Avatar: testAvatar}, julia.ID)
	require.NoError(t, err)
	assert.Contains(t, res.Avatar, "avatars/")

	profile, err := svc.GetUserByID(context.Background(), julia.ID, julia.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.Avatar)
	assert.Equal(t, res.Avatar, *profile.Avatar)

	require.NoError(t, svc.DeleteAvatar(context.Background(), julia.ID))
	assert.ErrorIs(t, svc.DeleteAvatar(context.Background(), julia.ID), domain.ErrNoAvatar)
}

func TestUpdateAvatarRejectsInvalidImage(t *testing.T) {
	svc, repo := newTestService(t)
	julia := seedUser(t, repo, "julia", "julia@example.com", "s3cret-pass")

	_, err := svc.UpdateAvatar(context.Background(), domain.UpdateAvatarRequest{Avatar: "not-an-image"}, julia.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidImage)
}
