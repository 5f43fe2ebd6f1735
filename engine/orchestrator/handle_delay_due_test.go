package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/Abraxas-365/relay/engine"
	"github.com/Abraxas-365/relay/pkg/kernel"
)

type fakeUserRepo struct {
	byID map[kernel.UserID]*engine.User
}

func (f *fakeUserRepo) FindByIdentity(_ context.Context, _ kernel.BrandID, _, _ string) (*engine.User, error) {
	return nil, engine.ErrUserNotFound()
}

func (f *fakeUserRepo) FindByID(_ context.Context, id kernel.UserID) (*engine.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, engine.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserRepo) Save(_ context.Context, _ engine.User) error {
	return nil
}

func TestHandleDelayDue_UnknownUser(t *testing.T) {
	o := New(&fakeUserRepo{byID: map[kernel.UserID]*engine.User{}}, nil, nil, nil, nil, nil, nil, nil, nil)

	err := o.HandleDelayDue(context.Background(), engine.Delay{UserIdentifier: "ghost"})
	if err != nil {
		t.Fatalf("HandleDelayDue() with unknown user = %v, want nil", err)
	}
}

func TestHandleDelayDue_UserNotWaitingOnDelay(t *testing.T) {
	user := &engine.User{
		ID:               "user-1",
		BrandID:          "brand-1",
		Channel:          "whatsapp",
		ChannelAccountID: "+51999999999",
		IsInAutomation:   false,
	}
	o := New(&fakeUserRepo{byID: map[kernel.UserID]*engine.User{user.ID: user}}, nil, nil, nil, nil, nil, nil, nil, nil)

	err := o.HandleDelayDue(context.Background(), engine.Delay{UserIdentifier: string(user.ID)})
	if err != nil {
		t.Fatalf("HandleDelayDue() for a user no longer waiting on a delay = %v, want nil", err)
	}
}

func TestHandleDelayDue_PropagatesRepositoryError(t *testing.T) {
	boom := errors.New("db unreachable")
	o := New(&erroringUserRepo{err: boom}, nil, nil, nil, nil, nil, nil, nil, nil)

	err := o.HandleDelayDue(context.Background(), engine.Delay{UserIdentifier: "user-1"})
	if !errors.Is(err, boom) {
		t.Fatalf("HandleDelayDue() error = %v, want %v", err, boom)
	}
}

type erroringUserRepo struct{ err error }

func (f *erroringUserRepo) FindByIdentity(_ context.Context, _ kernel.BrandID, _, _ string) (*engine.User, error) {
	return nil, f.err
}
func (f *erroringUserRepo) FindByID(_ context.Context, _ kernel.UserID) (*engine.User, error) {
	return nil, f.err
}
func (f *erroringUserRepo) Save(_ context.Context, _ engine.User) error { return nil }
